// internal/domdriver/js.go
package domdriver

// Page scripts. Each returns a JSON-serializable value. Button discovery
// is text-heuristic based because class names churn between frontend
// deployments; visible text survives far longer.

// findAndClickLoadMoreScript clicks one pagination control and reports
// whether it found one. A bare "Reply" action button must never match.
const findAndClickLoadMoreScript = `(() => {
	const candidates = Array.from(document.querySelectorAll('button, a[role="button"]'));
	const pattern = /load more|show more|more comments|previous comments|view more comments/i;
	for (const el of candidates) {
		const text = (el.innerText || '').trim();
		if (!text || text.length > 80) continue;
		if (!pattern.test(text)) continue;
		if (el.disabled || el.offsetParent === null) continue;
		el.scrollIntoView({block: 'center'});
		el.click();
		return true;
	}
	return false;
})()`

// findAndClickReplyTogglesScript expands collapsed reply threads. Only
// buttons that reference a reply count or a "view/show/see replies"
// phrasing qualify; clicking a bare "Reply" control would open a
// composer instead.
const findAndClickReplyTogglesScript = `(() => {
	const candidates = Array.from(document.querySelectorAll('button, a[role="button"]'));
	const countPattern = /\d+\s+(repl|comment|answer)/i;
	const verbPattern = /(view|show|see|load)\s+[^]{0,30}(repl|answer)/i;
	let clicked = 0;
	for (const el of candidates) {
		if (clicked >= 10) break;
		const text = (el.innerText || '').trim();
		if (!text || text.length > 80) continue;
		if (/^reply$/i.test(text)) continue;
		if (!countPattern.test(text) && !verbPattern.test(text)) continue;
		if (el.disabled || el.offsetParent === null) continue;
		el.click();
		clicked++;
	}
	return clicked;
})()`

// findAndClickSeeMoreScript expands truncated comment bodies so the full
// text is present for the fallback scan.
const findAndClickSeeMoreScript = `(() => {
	const candidates = Array.from(document.querySelectorAll('button, span[role="button"], a[role="button"]'));
	const pattern = /^(…|\.\.\.)?\s*see more$/i;
	let clicked = 0;
	for (const el of candidates) {
		if (clicked >= 25) break;
		const text = (el.innerText || '').trim();
		if (!pattern.test(text)) continue;
		if (el.offsetParent === null) continue;
		el.click();
		clicked++;
	}
	return clicked;
})()`

// switchSortToRecentScript opens the comment sort dropdown and selects the
// most-recent ordering. Matching tolerates the major frontend locales.
const switchSortToRecentScript = `(() => {
	const recentPattern = /recent|reciente|récent|neueste|nieuwste|recente/i;
	const triggers = Array.from(document.querySelectorAll('button[aria-expanded], button'));
	const trigger = triggers.find(el => {
		const text = (el.innerText || '').trim();
		return text.length < 40 && /sort|relevan|recent|top/i.test(text) && el.offsetParent !== null;
	});
	if (!trigger) return 'no_trigger';
	trigger.click();
	const options = Array.from(document.querySelectorAll('[role="menuitem"], [role="option"], li button, .dropdown__item'));
	const option = options.find(el => recentPattern.test((el.innerText || '').trim()));
	if (!option) return 'no_option';
	option.click();
	return 'switched';
})()`

// verifySortIsRecentScript checks whether the sort trigger now reads as
// most-recent.
const verifySortIsRecentScript = `(() => {
	const recentPattern = /recent|reciente|récent|neueste|nieuwste|recente/i;
	const triggers = Array.from(document.querySelectorAll('button[aria-expanded], button'));
	return triggers.some(el => {
		const text = (el.innerText || '').trim();
		return text.length < 40 && recentPattern.test(text) && el.offsetParent !== null;
	});
})()`

// countCommentContainersScript counts rendered comment containers across
// the known container class families.
const countCommentContainersScript = `(() => {
	const selectors = [
		'article.comments-comment-entity',
		'article.comments-comment-item',
		'.comments-comment-item',
		'.comments-comment-entity',
		'[data-id^="comment"]'
	];
	const seen = new Set();
	for (const sel of selectors) {
		for (const el of document.querySelectorAll(sel)) seen.add(el);
	}
	return seen.size;
})()`

// declaredTotalCountScript extracts the thread's declared comment total
// from the social counts bar, tolerating "1,234 comments" and "1.2K"
// renderings. Returns 0 when not found.
const declaredTotalCountScript = `(() => {
	const els = Array.from(document.querySelectorAll(
		'li.social-details-social-counts__comments, [aria-label*="comment"], button, span'));
	const pattern = /([\d.,]+)\s*([KkMm])?\s*comment/;
	for (const el of els) {
		const text = (el.innerText || el.getAttribute('aria-label') || '').trim();
		if (text.length > 60) continue;
		const m = text.match(pattern);
		if (!m) continue;
		let n = parseFloat(m[1].replace(/,/g, ''));
		if (isNaN(n)) continue;
		const suffix = (m[2] || '').toLowerCase();
		if (suffix === 'k') n *= 1000;
		if (suffix === 'm') n *= 1000000;
		return Math.round(n);
	}
	return 0;
})()`

// postStateScript classifies the page before scanning starts.
const postStateScript = `(() => {
	const bodyText = (document.body && document.body.innerText || '').slice(0, 4000);
	if (/page not found|content unavailable|post unavailable|doesn.t exist/i.test(bodyText)) {
		return 'removed';
	}
	if (/comments? (are|have been) (turned off|disabled|limited)/i.test(bodyText)) {
		return 'comments_disabled';
	}
	return 'ok';
})()`

// installMutationCounterScript attaches a MutationObserver counting added
// nodes under the comments region. The counter is read and reset by
// polling, giving the quiet-window check a DOM activity signal.
const installMutationCounterScript = `(() => {
	if (window.__chMutations !== undefined) return true;
	window.__chMutations = 0;
	const root = document.querySelector('.comments-comments-list, section.comments, #comments') || document.body;
	if (!root) return false;
	const observer = new MutationObserver(muts => {
		for (const m of muts) window.__chMutations += m.addedNodes.length;
	});
	observer.observe(root, {childList: true, subtree: true});
	return true;
})()`

// drainMutationCountScript reads and resets the mutation counter.
const drainMutationCountScript = `(() => {
	const n = window.__chMutations || 0;
	window.__chMutations = 0;
	return n;
})()`

// scrollCommentsScript nudges the comments region (or window) down one
// viewport to trigger lazy loading.
const scrollCommentsScript = `(() => {
	const region = document.querySelector('.comments-comments-list, section.comments');
	if (region && region.scrollHeight > region.clientHeight) {
		region.scrollTop = region.scrollHeight;
	} else {
		window.scrollBy(0, window.innerHeight);
	}
	return true;
})()`

// commentsRegionHTMLScript serializes the comments region for the
// fallback scanner. Returns an empty string when no region exists.
const commentsRegionHTMLScript = `(() => {
	const region = document.querySelector('.comments-comments-list, section.comments, #comments');
	return region ? region.outerHTML : '';
})()`
