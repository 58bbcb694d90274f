// internal/domdriver/driver.go

// Package domdriver performs the active side of a scan: clicking
// pagination and reply controls, switching sort order, and scraping
// rendered comment containers when network capture is not enough.
package domdriver

import (
	"context"
	"fmt"

	"github.com/valpere/CommentHarvester/internal/utils"
)

// PageClient is the browser surface the driver needs.
type PageClient interface {
	Evaluate(ctx context.Context, script string, out interface{}) error
}

// PostState classifies the page before scanning starts.
type PostState string

const (
	PostStateOK               PostState = "ok"
	PostStateRemoved          PostState = "removed"
	PostStateCommentsDisabled PostState = "comments_disabled"
)

// SortOutcome reports what the sort switch achieved. An unverified switch
// does not fail the scan; collection continues in whatever order the page
// settled on.
type SortOutcome string

const (
	SortSwitched    SortOutcome = "switched"
	SortUnverified  SortOutcome = "unverified"
	SortUnavailable SortOutcome = "unavailable"
)

// Driver executes DOM interactions on the scanned page.
type Driver struct {
	client PageClient
	logger utils.Logger
}

// New creates a driver on the given page client.
func New(client PageClient, logger utils.Logger) *Driver {
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &Driver{client: client, logger: logger.WithField("component", "domdriver")}
}

// CheckPostState classifies the page before collection starts.
func (d *Driver) CheckPostState(ctx context.Context) (PostState, error) {
	var state string
	if err := d.client.Evaluate(ctx, postStateScript, &state); err != nil {
		return PostStateOK, fmt.Errorf("post state check failed: %w", err)
	}
	switch PostState(state) {
	case PostStateRemoved, PostStateCommentsDisabled:
		return PostState(state), nil
	default:
		return PostStateOK, nil
	}
}

// SwitchSortToRecent switches comment ordering to most-recent and
// verifies the result.
func (d *Driver) SwitchSortToRecent(ctx context.Context) (SortOutcome, error) {
	var result string
	if err := d.client.Evaluate(ctx, switchSortToRecentScript, &result); err != nil {
		return SortUnavailable, fmt.Errorf("sort switch failed: %w", err)
	}
	if result != "switched" {
		d.logger.Debugf("sort switch unavailable: %s", result)
		return SortUnavailable, nil
	}

	var verified bool
	if err := d.client.Evaluate(ctx, verifySortIsRecentScript, &verified); err != nil {
		return SortUnverified, nil
	}
	if !verified {
		d.logger.Warn("sort switch could not be verified, continuing in current order")
		return SortUnverified, nil
	}
	return SortSwitched, nil
}

// ClickLoadMore clicks one pagination control. Returns whether a control
// was found and clicked.
func (d *Driver) ClickLoadMore(ctx context.Context) (bool, error) {
	var clicked bool
	if err := d.client.Evaluate(ctx, findAndClickLoadMoreScript, &clicked); err != nil {
		return false, fmt.Errorf("load-more click failed: %w", err)
	}
	return clicked, nil
}

// ExpandReplies clicks reply-thread toggles and returns how many were
// clicked.
func (d *Driver) ExpandReplies(ctx context.Context) (int, error) {
	var clicked int
	if err := d.client.Evaluate(ctx, findAndClickReplyTogglesScript, &clicked); err != nil {
		return 0, fmt.Errorf("reply expansion failed: %w", err)
	}
	return clicked, nil
}

// ExpandSeeMore expands truncated comment bodies and returns how many
// were expanded.
func (d *Driver) ExpandSeeMore(ctx context.Context) (int, error) {
	var clicked int
	if err := d.client.Evaluate(ctx, findAndClickSeeMoreScript, &clicked); err != nil {
		return 0, fmt.Errorf("see-more expansion failed: %w", err)
	}
	return clicked, nil
}

// ScrollComments nudges the comment region down one viewport.
func (d *Driver) ScrollComments(ctx context.Context) error {
	if err := d.client.Evaluate(ctx, scrollCommentsScript, nil); err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	return nil
}

// CommentCount returns how many comment containers are rendered.
func (d *Driver) CommentCount(ctx context.Context) (int, error) {
	var count int
	if err := d.client.Evaluate(ctx, countCommentContainersScript, &count); err != nil {
		return 0, fmt.Errorf("comment count failed: %w", err)
	}
	return count, nil
}

// DeclaredTotal returns the thread's declared comment total from the
// social counts bar, or 0 when absent.
func (d *Driver) DeclaredTotal(ctx context.Context) (int, error) {
	var total int
	if err := d.client.Evaluate(ctx, declaredTotalCountScript, &total); err != nil {
		return 0, fmt.Errorf("declared total read failed: %w", err)
	}
	return total, nil
}

// InstallMutationCounter attaches the DOM activity counter.
func (d *Driver) InstallMutationCounter(ctx context.Context) error {
	var ok bool
	if err := d.client.Evaluate(ctx, installMutationCounterScript, &ok); err != nil {
		return fmt.Errorf("mutation counter install failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("mutation counter install failed: no observable root")
	}
	return nil
}

// DrainMutationCount reads and resets the DOM activity counter.
func (d *Driver) DrainMutationCount(ctx context.Context) (int, error) {
	var count int
	if err := d.client.Evaluate(ctx, drainMutationCountScript, &count); err != nil {
		return 0, fmt.Errorf("mutation counter read failed: %w", err)
	}
	return count, nil
}

// CommentsRegionHTML serializes the rendered comments region for the
// fallback scanner.
func (d *Driver) CommentsRegionHTML(ctx context.Context) (string, error) {
	var html string
	if err := d.client.Evaluate(ctx, commentsRegionHTMLScript, &html); err != nil {
		return "", fmt.Errorf("comments region read failed: %w", err)
	}
	return html, nil
}
