package connector

import (
	"fmt"
	"strings"

	"github.com/gorewood/patchbay/internal/auth"
	"github.com/gorewood/patchbay/internal/credentials"
)

// Connector describes one vendor API.
type Connector struct {
	Name  string
	Title string

	// BaseURL may reference credential keys as {KEY}; unset keys fall back
	// to the key's Default.
	BaseURL string

	Keys []Key

	// MultiAccount connectors read <connector>/<account>/.env when an
	// account is given.
	MultiAccount bool

	// Authorize builds the request authorizer from a loaded credential set.
	Authorize func(*credentials.Set) (auth.Authorizer, error)

	// Headers returns static headers sent on every request.
	Headers func(*credentials.Set) map[string]string

	NotFoundCodes []string
	Resources     []Resource
}

// Key is a credential variable a connector reads.
type Key struct {
	Name        string
	Description string
	Optional    bool
	Default     string
}

// Resource groups the verbs for one vendor object type.
type Resource struct {
	Name       string
	Short      string
	Operations []Operation
}

// RequiredKeys lists the connector's non-optional credential keys.
func (c *Connector) RequiredKeys() []string {
	var keys []string
	for _, k := range c.Keys {
		if !k.Optional {
			keys = append(keys, k.Name)
		}
	}
	return keys
}

// KeyNames lists every credential key, required first.
func (c *Connector) KeyNames() []string {
	keys := c.RequiredKeys()
	for _, k := range c.Keys {
		if k.Optional {
			keys = append(keys, k.Name)
		}
	}
	return keys
}

// ScaffoldKeys converts the connector keys for credentials.Scaffold.
func (c *Connector) ScaffoldKeys() []credentials.ScaffoldKey {
	out := make([]credentials.ScaffoldKey, 0, len(c.Keys))
	for _, k := range c.Keys {
		out = append(out, credentials.ScaffoldKey{Name: k.Name, Description: k.Description, Optional: k.Optional})
	}
	return out
}

// Resource finds a resource by name.
func (c *Connector) Resource(name string) (*Resource, bool) {
	for i := range c.Resources {
		if c.Resources[i].Name == name {
			return &c.Resources[i], true
		}
	}
	return nil, false
}

// Operation finds a verb on the resource.
func (r *Resource) Operation(verb string) (*Operation, bool) {
	for i := range r.Operations {
		if r.Operations[i].Verb == verb {
			return &r.Operations[i], true
		}
	}
	return nil, false
}

// ResolveBaseURL expands {KEY} references in BaseURL from the credential set.
func (c *Connector) ResolveBaseURL(set *credentials.Set) string {
	return expand(c.BaseURL, func(name string) string {
		fallback := ""
		for _, k := range c.Keys {
			if k.Name == name {
				fallback = k.Default
			}
		}
		if set == nil {
			return fallback
		}
		return set.GetOr(name, fallback)
	})
}

// Target identifies one operation on one connector.
type Target struct {
	Connector *Connector
	Resource  *Resource
	Operation *Operation
}

// Name is "connector resource verb".
func (t Target) Name() string {
	return fmt.Sprintf("%s %s %s", t.Connector.Name, t.Resource.Name, t.Operation.Verb)
}

// expand replaces {name} with lookup(name).
func expand(template string, lookup func(string) string) string {
	var b strings.Builder
	for {
		open := strings.IndexByte(template, '{')
		if open < 0 {
			b.WriteString(template)
			return b.String()
		}
		end := strings.IndexByte(template[open:], '}')
		if end < 0 {
			b.WriteString(template)
			return b.String()
		}
		b.WriteString(template[:open])
		b.WriteString(lookup(template[open+1 : open+end]))
		template = template[open+end+1:]
	}
}
