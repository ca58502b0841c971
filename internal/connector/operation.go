package connector

import (
	"fmt"
	"net/url"
	"strings"
)

// Operation is one verb: a single REST call.
type Operation struct {
	Verb   string
	Short  string
	Method string

	// Path holds {arg} placeholders filled from positional args.
	Path string
	Args []Arg

	Query  []Param
	Fields []Param

	// Data lets callers supply a JSON body with --data.
	Data bool

	// Static body fields and query values sent on every call.
	Static      map[string]any
	StaticQuery url.Values

	Destructive bool

	List    *ListSpec
	Columns []Column

	// IDHeader names a response header that carries the created id.
	IDHeader string
}

// Arg is a positional argument substituted into the path.
type Arg struct {
	Name  string
	Usage string

	// URN args are query-escaped so ':' and ',' survive in a path segment.
	URN bool
}

// Kind is a parameter's value type.
type Kind int

// Parameter kinds.
const (
	String Kind = iota
	Int
	Bool
	List
	JSON
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Bool:
		return "bool"
	case List:
		return "list"
	case JSON:
		return "json"
	default:
		return "string"
	}
}

// Param is a flag that becomes a query value or body field.
type Param struct {
	Flag  string
	Key   string
	Usage string
	Kind  Kind

	Required bool
	Default  string

	// FromKey names a credential key used when the flag is unset.
	FromKey string
}

// QueryKey is the query parameter or dotted body path for the param.
func (p Param) QueryKey() string {
	if p.Key != "" {
		return p.Key
	}
	return p.Flag
}

// ListSpec describes where a list response keeps its items and how to page.
type ListSpec struct {
	// ItemsKey is a dotted path to the item array; "" means the body is
	// the array.
	ItemsKey string
	Cursor   *Cursor
}

// PageStyle is a vendor pagination scheme.
type PageStyle int

// Pagination styles.
const (
	// TokenPages passes the token found at Next back in Param.
	TokenPages PageStyle = iota
	// NumberedPages counts Param up from zero until Done is true or a page
	// comes back empty.
	NumberedPages
	// OffsetPages advances Param by the page size until a short page.
	OffsetPages
)

// Cursor describes how to request the next page.
type Cursor struct {
	Style PageStyle
	Param string
	Next  string
	Done  string

	LimitParam string
	Limit      int
}

// Flags lists every flag name the operation accepts.
func (o *Operation) Flags() []Param {
	out := make([]Param, 0, len(o.Query)+len(o.Fields))
	out = append(out, o.Query...)
	out = append(out, o.Fields...)
	return out
}

// Param finds a query or body param by flag name.
func (o *Operation) Param(flag string) (Param, bool) {
	for _, p := range o.Flags() {
		if p.Flag == flag {
			return p, true
		}
	}
	return Param{}, false
}

// AcceptsBody reports whether the operation sends a JSON body.
func (o *Operation) AcceptsBody() bool {
	return o.Data || len(o.Fields) > 0 || len(o.Static) > 0
}

// Usage renders "<a> <b>" for the positional args.
func (o *Operation) Usage() string {
	names := make([]string, 0, len(o.Args))
	for _, a := range o.Args {
		names = append(names, "<"+a.Name+">")
	}
	return strings.Join(names, " ")
}

// BuildPath fills the path template with escaped positional args. Empty
// and dot-segment args are rejected.
func (o *Operation) BuildPath(args []string) (string, error) {
	if len(args) != len(o.Args) {
		return "", fmt.Errorf("expected %d args, got %d", len(o.Args), len(args))
	}
	values := make(map[string]string, len(args))
	for i, a := range o.Args {
		switch args[i] {
		case "", ".", "..":
			return "", fmt.Errorf("invalid %s %q", a.Name, args[i])
		}
		if a.URN {
			values[a.Name] = url.QueryEscape(args[i])
		} else {
			values[a.Name] = url.PathEscape(args[i])
		}
	}
	return expand(o.Path, func(name string) string { return values[name] }), nil
}
