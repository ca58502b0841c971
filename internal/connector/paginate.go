package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gorewood/patchbay/internal/output"
	"github.com/gorewood/patchbay/internal/rest"
)

// MaxPages bounds --all.
const MaxPages = 50

// call performs the operation once, or walks every page with all.
func call(ctx context.Context, client *rest.Client, logger zerolog.Logger, target Target, req *request, all bool) (*Result, error) {
	op := target.Operation
	if !all || op.List == nil || op.List.Cursor == nil {
		resp, err := client.Do(ctx, rest.Request{Method: op.Method, Path: req.path, Query: req.query, Body: req.body})
		if err != nil {
			return nil, err
		}
		result := &Result{Target: target, Status: resp.Status, Body: resp.Body, Pages: 1}
		if op.IDHeader != "" {
			result.ID = resp.Header.Get(op.IDHeader)
		}
		if op.List != nil && !resp.Empty() {
			if result.Items, err = extractItems(resp.Body, op.List.ItemsKey); err != nil {
				return nil, err
			}
		}
		return result, nil
	}
	return paginate(ctx, client, logger, target, req)
}

func paginate(ctx context.Context, client *rest.Client, logger zerolog.Logger, target Target, req *request) (*Result, error) {
	op := target.Operation
	cur := op.List.Cursor
	query := cloneQuery(req.query)
	if cur.LimitParam != "" && cur.Limit > 0 {
		query.Set(cur.LimitParam, strconv.Itoa(cur.Limit))
	}

	var (
		items  []json.RawMessage
		status int
		page   int
		offset int
	)
	switch cur.Style {
	case NumberedPages:
		page, _ = strconv.Atoi(query.Get(cur.Param))
	case OffsetPages:
		offset, _ = strconv.Atoi(query.Get(cur.Param))
	}

	pages := 0
	for pages < MaxPages {
		switch cur.Style {
		case NumberedPages:
			query.Set(cur.Param, strconv.Itoa(page))
		case OffsetPages:
			query.Set(cur.Param, strconv.Itoa(offset))
		}

		resp, err := client.Do(ctx, rest.Request{Method: op.Method, Path: req.path, Query: query, Body: req.body})
		if err != nil {
			return nil, err
		}
		pages++
		status = resp.Status

		pageItems, err := extractItems(resp.Body, op.List.ItemsKey)
		if err != nil {
			return nil, err
		}
		items = append(items, pageItems...)

		more := false
		switch cur.Style {
		case TokenPages:
			next := stringify(lookupOr(decode(resp.Body), cur.Next))
			if next != "" {
				query.Set(cur.Param, next)
				more = true
			}
		case NumberedPages:
			done, _ := lookupOr(decode(resp.Body), cur.Done).(bool)
			more = !done && len(pageItems) > 0
			page++
		case OffsetPages:
			more = cur.Limit > 0 && len(pageItems) >= cur.Limit
			offset += len(pageItems)
		}
		if !more {
			return aggregate(target, status, items, pages), nil
		}
	}

	logger.Warn().Int("pages", pages).Msg("stopped paging at the page limit; results are incomplete")
	return aggregate(target, status, items, pages), nil
}

func aggregate(target Target, status int, items []json.RawMessage, pages int) *Result {
	var b bytes.Buffer
	b.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			b.WriteByte(',')
		}
		b.Write(item)
	}
	b.WriteByte(']')
	return &Result{Target: target, Status: status, Body: b.Bytes(), Items: items, Pages: pages}
}

// extractItems finds the item array at a dotted path. A missing key is
// an empty list; vendors omit empty arrays.
func extractItems(body json.RawMessage, path string) ([]json.RawMessage, error) {
	node := body
	if path != "" {
		for _, part := range strings.Split(path, ".") {
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(node, &obj); err != nil {
				return nil, output.NewSystemErrorWithCause(fmt.Sprintf("unexpected list response: %v", err), err)
			}
			next, ok := obj[part]
			if !ok {
				return nil, nil
			}
			node = next
		}
	}
	if trimmed := bytes.TrimSpace(node); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(node, &items); err != nil {
		return nil, output.NewSystemErrorWithCause(fmt.Sprintf("unexpected list response at %q: %v", path, err), err)
	}
	return items, nil
}

func cloneQuery(q url.Values) url.Values {
	out := make(url.Values, len(q))
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	return out
}
