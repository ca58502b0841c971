// Package catalog declares the vendor connectors patchbay ships.
package catalog

import (
	"net/http"

	"github.com/gorewood/patchbay/internal/connector"
)

// All returns every connector in display order. Each call builds fresh
// values, so callers may modify them.
func All() []*connector.Connector {
	return []*connector.Connector{
		ClickUp(),
		HubSpot(),
		Make(),
		X(),
		Zoom(),
		LinkedIn(),
	}
}

// Lookup finds a connector by name.
func Lookup(name string) (*connector.Connector, bool) {
	for _, c := range All() {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Names lists connector names in display order.
func Names() []string {
	all := All()
	names := make([]string, 0, len(all))
	for _, c := range all {
		names = append(names, c.Name)
	}
	return names
}

// Find resolves "connector resource verb" to a target.
func Find(connectorName, resource, verb string) (connector.Target, bool) {
	conn, ok := Lookup(connectorName)
	if !ok {
		return connector.Target{}, false
	}
	res, ok := conn.Resource(resource)
	if !ok {
		return connector.Target{}, false
	}
	op, ok := res.Operation(verb)
	if !ok {
		return connector.Target{}, false
	}
	return connector.Target{Connector: conn, Resource: res, Operation: op}, true
}

// Shorthands for operation tables.
const (
	get   = http.MethodGet
	post  = http.MethodPost
	put   = http.MethodPut
	patch = http.MethodPatch
	del   = http.MethodDelete
)

func arg(name, usage string) connector.Arg {
	return connector.Arg{Name: name, Usage: usage}
}

func str(flag, key, usage string) connector.Param {
	return connector.Param{Flag: flag, Key: key, Usage: usage}
}

func num(flag, key, usage string) connector.Param {
	return connector.Param{Flag: flag, Key: key, Usage: usage, Kind: connector.Int}
}

func boolean(flag, key, usage string) connector.Param {
	return connector.Param{Flag: flag, Key: key, Usage: usage, Kind: connector.Bool}
}

func list(flag, key, usage string) connector.Param {
	return connector.Param{Flag: flag, Key: key, Usage: usage, Kind: connector.List}
}

func raw(flag, key, usage string) connector.Param {
	return connector.Param{Flag: flag, Key: key, Usage: usage, Kind: connector.JSON}
}

func required(p connector.Param) connector.Param {
	p.Required = true
	return p
}

func col(header, path string) connector.Column {
	return connector.Column{Header: header, Path: path}
}

func when(header, path string) connector.Column {
	return connector.Column{Header: header, Path: path, Format: connector.Time}
}
