// internal/domdriver/driver_test.go
package domdriver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/valpere/CommentHarvester/internal/utils"
)

// fakePageClient answers Evaluate calls from a script-keyed table. Keys
// are matched by substring so tests do not repeat whole scripts.
type fakePageClient struct {
	responses map[string]interface{}
	err       error
	calls     []string
}

func (f *fakePageClient) Evaluate(ctx context.Context, script string, out interface{}) error {
	f.calls = append(f.calls, script)
	if f.err != nil {
		return f.err
	}
	for key, value := range f.responses {
		if strings.Contains(script, key) {
			if out == nil {
				return nil
			}
			raw, err := json.Marshal(value)
			if err != nil {
				return err
			}
			return json.Unmarshal(raw, out)
		}
	}
	return nil
}

func TestCheckPostState(t *testing.T) {
	tests := []struct {
		response string
		want     PostState
	}{
		{"ok", PostStateOK},
		{"removed", PostStateRemoved},
		{"comments_disabled", PostStateCommentsDisabled},
		{"something_else", PostStateOK},
	}
	for _, tt := range tests {
		client := &fakePageClient{responses: map[string]interface{}{"page not found": tt.response}}
		d := New(client, utils.NewLoggerWithLevel(utils.ErrorLevel))
		got, err := d.CheckPostState(context.Background())
		if err != nil {
			t.Fatalf("CheckPostState(%q): %v", tt.response, err)
		}
		if got != tt.want {
			t.Errorf("CheckPostState(%q) = %q, want %q", tt.response, got, tt.want)
		}
	}
}

func TestSwitchSortToRecent(t *testing.T) {
	tests := []struct {
		name     string
		switched string
		verified bool
		want     SortOutcome
	}{
		{"switched and verified", "switched", true, SortSwitched},
		{"switched but unverified", "switched", false, SortUnverified},
		{"no trigger found", "no_trigger", false, SortUnavailable},
		{"no option found", "no_option", false, SortUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakePageClient{responses: map[string]interface{}{
				"no_trigger":           tt.switched,
				"return triggers.some": tt.verified,
			}}
			d := New(client, utils.NewLoggerWithLevel(utils.ErrorLevel))
			got, err := d.SwitchSortToRecent(context.Background())
			if err != nil {
				t.Fatalf("SwitchSortToRecent: %v", err)
			}
			if got != tt.want {
				t.Errorf("SwitchSortToRecent = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDriverCounters(t *testing.T) {
	client := &fakePageClient{responses: map[string]interface{}{
		"seen.size":     7,
		"__chMutations": 12,
	}}
	d := New(client, utils.NewLoggerWithLevel(utils.ErrorLevel))
	ctx := context.Background()

	count, err := d.CommentCount(ctx)
	if err != nil || count != 7 {
		t.Errorf("CommentCount = %d, %v; want 7", count, err)
	}

	mutations, err := d.DrainMutationCount(ctx)
	if err != nil || mutations != 12 {
		t.Errorf("DrainMutationCount = %d, %v; want 12", mutations, err)
	}
}

func TestDriver_EvaluateErrorPropagates(t *testing.T) {
	client := &fakePageClient{err: errors.New("tab gone")}
	d := New(client, utils.NewLoggerWithLevel(utils.ErrorLevel))

	if _, err := d.ClickLoadMore(context.Background()); err == nil {
		t.Error("ClickLoadMore swallowed the evaluate error")
	}
	if _, err := d.ExpandReplies(context.Background()); err == nil {
		t.Error("ExpandReplies swallowed the evaluate error")
	}
	if err := d.ScrollComments(context.Background()); err == nil {
		t.Error("ScrollComments swallowed the evaluate error")
	}
}

func TestReplyToggleScriptNeverMatchesBareReply(t *testing.T) {
	// The script must carry the bare-"Reply" exclusion.
	if !strings.Contains(findAndClickReplyTogglesScript, `/^reply$/i`) {
		t.Error("reply toggle script lost its bare-Reply exclusion")
	}
}
