package snapshot

import (
	"context"
	"fmt"
	"strings"

	"highlight_reel/common"
)

// MarkerSelector locates the highlight inserted by Locate.
const MarkerSelector = "mark[data-highlight]"

// highlightJS rebuilds the first heading containing the keyword as
// blurred prefix, highlighted match, blurred suffix, then blurs everything
// except the marker and its ancestors. Returns whether a heading matched.
const highlightJS = `(keyword) => {
	const pattern = new RegExp(keyword.replace(/[.*+?^${}()|[\]\\]/g, '\\$&'), 'iu');
	let target = null, found = null;
	for (const h of document.querySelectorAll('h1, h2, h3, h4, h5, h6')) {
		found = pattern.exec(h.textContent || '');
		if (found) { target = h; break; }
	}
	if (!target) return false;

	// Offsets come from the original text; lowercasing can change its length.
	const text = target.textContent;
	const pre = text.slice(0, found.index);
	const match = text.slice(found.index, found.index + found[0].length);
	const post = text.slice(found.index + found[0].length);

	const blurred = (s) => {
		const wrap = document.createElement('span');
		for (const ch of s) {
			const c = document.createElement('span');
			c.textContent = ch;
			c.style.filter = 'blur(4px)';
			wrap.appendChild(c);
		}
		return wrap;
	};

	const heading = document.createElement(target.tagName);
	for (const a of target.attributes) heading.setAttribute(a.name, a.value);
	heading.appendChild(blurred(pre));
	const mark = document.createElement('mark');
	mark.setAttribute('data-highlight', 'true');
	mark.textContent = match;
	mark.style.cssText = 'background: yellow; color: black; font-weight: bold; filter: none;';
	heading.appendChild(mark);
	heading.appendChild(blurred(post));
	target.replaceWith(heading);

	const keep = new Set();
	for (let n = mark; n; n = n.parentElement) keep.add(n);
	document.querySelectorAll('body *').forEach(el => {
		if (!keep.has(el) && !el.style.filter) el.style.filter = 'blur(6px)';
	});
	return true;
}`

// Locate highlights the first heading occurrence of keyword on s and returns the
// marker's region. A nil region with a nil error means no match.
func Locate(ctx context.Context, s Surface, keyword string) (*common.Region, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, nil
	}

	matched, err := s.EvalBool(ctx, highlightJS, keyword)
	if err != nil {
		return nil, fmt.Errorf("highlight script failed: %w", err)
	}
	if !matched {
		return nil, nil
	}

	// Geometry is read only after the DOM mutation has completed.
	box, err := s.BoundingBox(ctx, MarkerSelector)
	if err != nil {
		return nil, fmt.Errorf("failed to read marker geometry: %w", err)
	}
	if box == nil || box.Empty() {
		return nil, nil
	}
	return box, nil
}
