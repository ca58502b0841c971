// Package connector runs declarative vendor operations.
//
// A Connector lists Resources, each with Operations. An Operation is one
// REST call described as data: method, path template, positional args,
// query and body params, and whether it is destructive. A Runner executes
// an Operation for an Invocation in a fixed order:
//
//  1. validate args, flags and --data
//  2. load the credential set (missing file or key fails here)
//  3. gate destructive calls behind --force or a Confirmer
//  4. build an authorized rest.Client and make the call
//
// Nothing reaches the network before step 4.
package connector
