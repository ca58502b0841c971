package connector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/gorewood/patchbay/internal/credentials"
	"github.com/gorewood/patchbay/internal/output"
)

// Invocation is one command run: positional args, raw flag values, and
// the shared switches.
type Invocation struct {
	Args  []string
	Flags map[string]string

	// Data is a JSON body, JSONC allowed, or "@path" to read one from a file.
	Data string

	Force   bool
	All     bool
	Account string
}

// request is an invocation resolved against an operation, before
// credential-backed params are filled.
type request struct {
	path  string
	query url.Values
	body  any

	// pending params take their value from the credential set.
	pending []Param
}

func prepare(op *Operation, inv Invocation) (*request, error) {
	if len(inv.Args) != len(op.Args) {
		return nil, output.NewUserError(argCountMessage(op, len(inv.Args)))
	}
	path, err := op.BuildPath(inv.Args)
	if err != nil {
		return nil, output.NewUserError(err.Error())
	}

	if err := checkFlags(op, inv.Flags); err != nil {
		return nil, err
	}

	req := &request{path: path, query: url.Values{}}
	for k, vs := range op.StaticQuery {
		req.query[k] = append([]string(nil), vs...)
	}

	body, err := decodeData(op, inv.Data)
	if err != nil {
		return nil, err
	}

	for _, p := range op.Query {
		raw, ok := flagValue(p, inv.Flags)
		if !ok {
			if p.FromKey != "" {
				req.pending = append(req.pending, p)
			} else if p.Required {
				return nil, output.NewUserError(fmt.Sprintf("missing required flag --%s", p.Flag))
			}
			continue
		}
		if err := addQuery(req.query, p, raw); err != nil {
			return nil, err
		}
	}

	fields := map[string]any{}
	for k, v := range op.Static {
		fields[k] = cloneValue(v)
	}
	for _, p := range op.Fields {
		raw, ok := flagValue(p, inv.Flags)
		if !ok {
			switch {
			case hasPath(body, p.QueryKey()):
				// --data supplies it.
			case p.FromKey != "":
				req.pending = append(req.pending, p)
			case p.Required:
				return nil, output.NewUserError(fmt.Sprintf("missing required flag --%s", p.Flag))
			}
			continue
		}
		value, err := convert(p, raw)
		if err != nil {
			return nil, err
		}
		fields[p.QueryKey()] = value
	}

	req.body, err = mergeBody(body, fields)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// requiredKeys adds the pending required params' credential keys.
func (r *request) requiredKeys(base []string) []string {
	keys := append([]string(nil), base...)
	for _, p := range r.pending {
		if p.Required && !slices.Contains(keys, p.FromKey) {
			keys = append(keys, p.FromKey)
		}
	}
	return keys
}

// fill applies credential-backed param values.
func (r *request) fill(op *Operation, set *credentials.Set) error {
	for _, p := range r.pending {
		raw := set.Get(p.FromKey)
		if raw == "" {
			if p.Default == "" {
				continue
			}
			raw = p.Default
		}
		value, err := convert(p, raw)
		if err != nil {
			return output.NewConfigError(fmt.Sprintf("%s in %s: %v", p.FromKey, set.Path, err), err)
		}
		if isField(op, p) {
			m, _ := r.body.(map[string]any)
			if m == nil {
				m = map[string]any{}
			}
			if !hasPath(m, p.QueryKey()) {
				setPath(m, p.QueryKey(), value)
			}
			r.body = m
			continue
		}
		if err := addQuery(r.query, p, raw); err != nil {
			return err
		}
	}
	return nil
}

func argCountMessage(op *Operation, got int) string {
	if len(op.Args) == 0 {
		return fmt.Sprintf("%s takes no args, got %d", op.Verb, got)
	}
	names := make([]string, 0, len(op.Args))
	for _, a := range op.Args {
		names = append(names, a.Name)
	}
	return fmt.Sprintf("%s requires exactly %d arg(s): %s (got %d)", op.Verb, len(op.Args), strings.Join(names, ", "), got)
}

func checkFlags(op *Operation, flags map[string]string) error {
	var unknown []string
	for name := range flags {
		if _, ok := op.Param(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return output.NewUserError(fmt.Sprintf("%s does not accept flag(s): %s", op.Verb, strings.Join(unknown, ", ")))
}

func flagValue(p Param, flags map[string]string) (string, bool) {
	if raw, ok := flags[p.Flag]; ok {
		return raw, true
	}
	if p.Default != "" && p.FromKey == "" {
		return p.Default, true
	}
	return "", false
}

func addQuery(q url.Values, p Param, raw string) error {
	value, err := convert(p, raw)
	if err != nil {
		return err
	}
	key := p.QueryKey()
	switch v := value.(type) {
	case []string:
		for _, item := range v {
			q.Add(key, item)
		}
	case string:
		q.Set(key, v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return output.NewUserError(fmt.Sprintf("--%s: %v", p.Flag, err))
		}
		q.Set(key, string(encoded))
	}
	return nil
}

func convert(p Param, raw string) (any, error) {
	switch p.Kind {
	case Int:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, output.NewUserError(fmt.Sprintf("--%s: %q is not an integer", p.Flag, raw))
		}
		return n, nil
	case Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, output.NewUserError(fmt.Sprintf("--%s: %q is not true or false", p.Flag, raw))
		}
		return b, nil
	case List:
		var items []string
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items, nil
	case JSON:
		v, err := decodeJSON([]byte(raw))
		if err != nil {
			return nil, output.NewUserError(fmt.Sprintf("--%s: invalid JSON: %v", p.Flag, err))
		}
		return v, nil
	default:
		return raw, nil
	}
}

func decodeData(op *Operation, data string) (any, error) {
	if data == "" {
		return nil, nil
	}
	if !op.AcceptsBody() {
		return nil, output.NewUserError(fmt.Sprintf("%s does not accept --data", op.Verb))
	}
	raw := []byte(data)
	if strings.HasPrefix(data, "@") {
		content, err := os.ReadFile(data[1:])
		if err != nil {
			return nil, output.NewUserError(fmt.Sprintf("reading --data file: %v", err))
		}
		raw = content
	}
	v, err := decodeJSON(raw)
	if err != nil {
		return nil, output.NewUserError(fmt.Sprintf("--data is not valid JSON: %v", err))
	}
	return v, nil
}

// decodeJSON accepts JSONC (comments, trailing commas) and keeps numbers
// exact.
func decodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

// mergeBody overlays flag fields onto the --data body. Flags win.
func mergeBody(data any, fields map[string]any) (any, error) {
	if len(fields) == 0 {
		return data, nil
	}
	m, ok := data.(map[string]any)
	if data != nil && !ok {
		return nil, output.NewUserError("--data must be a JSON object when combined with field flags")
	}
	if m == nil {
		m = map[string]any{}
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		setPath(m, k, fields[k])
	}
	return m, nil
}

func hasPath(body any, path string) bool {
	_, ok := Lookup(body, path)
	return ok
}

func isField(op *Operation, p Param) bool {
	for _, f := range op.Fields {
		if f.Flag == p.Flag {
			return true
		}
	}
	return false
}

// cloneValue deep-copies decoded JSON so static templates are never
// mutated by a request.
func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return val
	}
}
