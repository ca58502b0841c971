package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gorewood/patchbay/internal/connector"
	"github.com/gorewood/patchbay/internal/credentials"
)

// --- Operations tool ---

// OperationsInput is the input for the operations tool.
type OperationsInput struct {
	Connector string `json:"connector,omitempty" jsonschema:"only describe this connector"`
}

// FlagInfo describes one operation flag.
type FlagInfo struct {
	Name        string `json:"name"                  jsonschema:"flag name, used as a key in flags"`
	Type        string `json:"type"                  jsonschema:"string, int, bool, list (comma separated) or json"`
	Description string `json:"description,omitempty" jsonschema:"what the flag sets"`
	Required    bool   `json:"required,omitempty"    jsonschema:"whether the flag must be given"`
	Default     string `json:"default,omitempty"     jsonschema:"value used when the flag is omitted"`
	FromKey     string `json:"from_key,omitempty"    jsonschema:"credential key used when the flag is omitted"`
}

// OperationInfo describes one verb.
type OperationInfo struct {
	Resource    string     `json:"resource"              jsonschema:"resource name"`
	Verb        string     `json:"verb"                  jsonschema:"verb name"`
	Description string     `json:"description"           jsonschema:"what the operation does"`
	Method      string     `json:"method"                jsonschema:"HTTP method"`
	Path        string     `json:"path"                  jsonschema:"vendor path template"`
	Args        []string   `json:"args,omitempty"        jsonschema:"positional args in order"`
	Flags       []FlagInfo `json:"flags,omitempty"       jsonschema:"accepted flags"`
	Body        bool       `json:"body,omitempty"        jsonschema:"whether a JSON body is accepted"`
	Paged       bool       `json:"paged,omitempty"       jsonschema:"whether all=true walks every page"`
	Destructive bool       `json:"destructive,omitempty" jsonschema:"requires force=true"`
}

// ConnectorInfo describes one connector.
type ConnectorInfo struct {
	Name         string          `json:"name"                    jsonschema:"connector name"`
	Title        string          `json:"title"                   jsonschema:"vendor display name"`
	RequiredKeys []string        `json:"required_keys"           jsonschema:"credential keys that must be set"`
	OptionalKeys []string        `json:"optional_keys,omitempty" jsonschema:"credential keys that may be set"`
	MultiAccount bool            `json:"multi_account,omitempty" jsonschema:"whether account selects a sub-account credential file"`
	Operations   []OperationInfo `json:"operations"              jsonschema:"available operations"`
}

// OperationsOutput is the output for the operations tool.
type OperationsOutput struct {
	Connectors []ConnectorInfo `json:"connectors" jsonschema:"connectors and their operations"`
}

func handleOperations(connectors []*connector.Connector) mcp.ToolHandlerFor[OperationsInput, OperationsOutput] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input OperationsInput) (*mcp.CallToolResult, OperationsOutput, error) {
		selected, err := selectConnectors(connectors, input.Connector)
		if err != nil {
			return nil, OperationsOutput{}, err
		}

		out := OperationsOutput{Connectors: make([]ConnectorInfo, 0, len(selected))}
		for _, conn := range selected {
			out.Connectors = append(out.Connectors, describeConnector(conn))
		}
		return nil, out, nil
	}
}

func describeConnector(conn *connector.Connector) ConnectorInfo {
	info := ConnectorInfo{
		Name:         conn.Name,
		Title:        conn.Title,
		RequiredKeys: conn.RequiredKeys(),
		MultiAccount: conn.MultiAccount,
	}
	for _, k := range conn.Keys {
		if k.Optional {
			info.OptionalKeys = append(info.OptionalKeys, k.Name)
		}
	}
	for _, res := range conn.Resources {
		for _, op := range res.Operations {
			opInfo := OperationInfo{
				Resource:    res.Name,
				Verb:        op.Verb,
				Description: op.Short,
				Method:      op.Method,
				Path:        op.Path,
				Body:        op.AcceptsBody(),
				Paged:       op.List != nil && op.List.Cursor != nil,
				Destructive: op.Destructive,
			}
			for _, a := range op.Args {
				opInfo.Args = append(opInfo.Args, a.Name)
			}
			for _, p := range op.Flags() {
				opInfo.Flags = append(opInfo.Flags, FlagInfo{
					Name:        p.Flag,
					Type:        p.Kind.String(),
					Description: p.Usage,
					Required:    p.Required,
					Default:     p.Default,
					FromKey:     p.FromKey,
				})
			}
			info.Operations = append(info.Operations, opInfo)
		}
	}
	return info
}

// --- Credentials tool ---

// CredentialsInput is the input for the credentials tool.
type CredentialsInput struct {
	Connector string `json:"connector,omitempty" jsonschema:"only report this connector"`
}

// CredentialStatus is one credential file's health.
type CredentialStatus struct {
	Connector string   `json:"connector"           jsonschema:"connector name"`
	Account   string   `json:"account,omitempty"   jsonschema:"sub-account, empty for the default file"`
	Path      string   `json:"path"                jsonschema:"credential file path"`
	Exists    bool     `json:"exists"              jsonschema:"whether the file exists"`
	Ready     bool     `json:"ready"               jsonschema:"whether every required key has a value"`
	Present   []string `json:"present,omitempty"   jsonschema:"required keys with values"`
	Missing   []string `json:"missing,omitempty"   jsonschema:"required keys without values"`
	Exposed   bool     `json:"exposed,omitempty"   jsonschema:"file is readable by group or others"`
	Modified  string   `json:"modified,omitempty"  jsonschema:"file modification time"`
	Error     string   `json:"error,omitempty"     jsonschema:"read error"`
}

// CredentialsOutput is the output for the credentials tool.
type CredentialsOutput struct {
	Files []CredentialStatus `json:"files" jsonschema:"one entry per credential file"`
}

func handleCredentials(loader *credentials.Loader, connectors []*connector.Connector) mcp.ToolHandlerFor[CredentialsInput, CredentialsOutput] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input CredentialsInput) (*mcp.CallToolResult, CredentialsOutput, error) {
		selected, err := selectConnectors(connectors, input.Connector)
		if err != nil {
			return nil, CredentialsOutput{}, err
		}

		out := CredentialsOutput{Files: []CredentialStatus{}}
		for _, conn := range selected {
			statuses, err := connector.Health(loader, conn)
			if err != nil {
				return nil, CredentialsOutput{}, fmt.Errorf("inspecting %s: %w", conn.Name, err)
			}
			for _, s := range statuses {
				out.Files = append(out.Files, toCredentialStatus(s))
			}
		}
		return nil, out, nil
	}
}

func toCredentialStatus(s credentials.Status) CredentialStatus {
	out := CredentialStatus{
		Connector: s.Connector,
		Account:   s.Account,
		Path:      s.Path,
		Exists:    s.FileExists,
		Ready:     s.Complete(),
		Present:   s.Present,
		Missing:   s.Missing,
		Exposed:   s.Exposed(),
		Error:     s.ReadError,
	}
	if !s.ModTime.IsZero() {
		out.Modified = s.ModTime.UTC().Format(time.RFC3339)
	}
	return out
}

// --- Invoke tool ---

// InvokeInput is the input for the invoke tool.
type InvokeInput struct {
	Connector string            `json:"connector"         jsonschema:"connector name, e.g. clickup"`
	Resource  string            `json:"resource"          jsonschema:"resource name, e.g. tasks"`
	Verb      string            `json:"verb"              jsonschema:"verb name, e.g. list"`
	Args      []string          `json:"args,omitempty"    jsonschema:"positional args in order"`
	Flags     map[string]string `json:"flags,omitempty"   jsonschema:"flag values by flag name"`
	Body      map[string]any    `json:"body,omitempty"    jsonschema:"JSON body; flags override its fields"`
	Account   string            `json:"account,omitempty" jsonschema:"sub-account for multi-account connectors"`
	All       bool              `json:"all,omitempty"     jsonschema:"fetch every page of a paged list"`
	Force     bool              `json:"force,omitempty"   jsonschema:"required to run destructive operations"`
}

// InvokeOutput is the output for the invoke tool.
type InvokeOutput struct {
	Status int    `json:"status"          jsonschema:"HTTP status of the last response"`
	Body   any    `json:"body,omitempty"  jsonschema:"vendor response body; with all=true the collected items"`
	ID     string `json:"id,omitempty"    jsonschema:"created id reported in a response header"`
	Count  int    `json:"count,omitempty" jsonschema:"number of list items"`
	Pages  int    `json:"pages,omitempty" jsonschema:"pages fetched"`
}

func handleInvoke(runner *connector.Runner, connectors []*connector.Connector) mcp.ToolHandlerFor[InvokeInput, InvokeOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input InvokeInput) (*mcp.CallToolResult, InvokeOutput, error) {
		target, err := findTarget(connectors, input.Connector, input.Resource, input.Verb)
		if err != nil {
			return nil, InvokeOutput{}, err
		}
		if target.Operation.Destructive && !input.Force {
			return nil, InvokeOutput{}, fmt.Errorf("%s is destructive: set force=true to run it", target.Name())
		}

		inv := connector.Invocation{
			Args:    input.Args,
			Flags:   input.Flags,
			Account: input.Account,
			All:     input.All,
			Force:   input.Force,
		}
		if input.Body != nil {
			data, err := json.Marshal(input.Body)
			if err != nil {
				return nil, InvokeOutput{}, fmt.Errorf("encoding body: %w", err)
			}
			inv.Data = string(data)
		}

		result, err := runner.Run(ctx, target, inv)
		if err != nil {
			return nil, InvokeOutput{}, err
		}

		out := InvokeOutput{Status: result.Status, ID: result.ID, Pages: result.Pages}
		if result.IsList() {
			out.Count = len(result.Items)
		}
		if !result.Empty() {
			var body any
			if err := json.Unmarshal(result.Body, &body); err != nil {
				body = string(result.Body)
			}
			out.Body = body
		}
		return nil, out, nil
	}
}

// --- Lookup helpers ---

func selectConnectors(connectors []*connector.Connector, name string) ([]*connector.Connector, error) {
	if name == "" {
		return connectors, nil
	}
	for _, conn := range connectors {
		if conn.Name == name {
			return []*connector.Connector{conn}, nil
		}
	}
	return nil, fmt.Errorf("unknown connector %q (available: %s)", name, connectorNames(connectors))
}

func findTarget(connectors []*connector.Connector, name, resource, verb string) (connector.Target, error) {
	if name == "" {
		return connector.Target{}, errors.New("connector is required")
	}
	selected, err := selectConnectors(connectors, name)
	if err != nil {
		return connector.Target{}, err
	}
	conn := selected[0]

	res, ok := conn.Resource(resource)
	if !ok {
		names := make([]string, 0, len(conn.Resources))
		for _, r := range conn.Resources {
			names = append(names, r.Name)
		}
		return connector.Target{}, fmt.Errorf("unknown %s resource %q (available: %s)", conn.Name, resource, strings.Join(names, ", "))
	}
	op, ok := res.Operation(verb)
	if !ok {
		verbs := make([]string, 0, len(res.Operations))
		for _, o := range res.Operations {
			verbs = append(verbs, o.Verb)
		}
		return connector.Target{}, fmt.Errorf("unknown %s %s verb %q (available: %s)", conn.Name, res.Name, verb, strings.Join(verbs, ", "))
	}
	return connector.Target{Connector: conn, Resource: res, Operation: op}, nil
}

func connectorNames(connectors []*connector.Connector) string {
	names := make([]string, 0, len(connectors))
	for _, conn := range connectors {
		names = append(names, conn.Name)
	}
	return strings.Join(names, ", ")
}
