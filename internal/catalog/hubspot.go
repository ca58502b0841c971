package catalog

import (
	"github.com/gorewood/patchbay/internal/auth"
	"github.com/gorewood/patchbay/internal/connector"
	"github.com/gorewood/patchbay/internal/credentials"
)

// crmObject describes one HubSpot CRM object type.
type crmObject struct {
	name     string
	singular string
	fields   []connector.Param
	columns  []connector.Column
}

// HubSpot CRM. Supports one credential file per client account.
func HubSpot() *connector.Connector {
	objects := []crmObject{
		{
			name:     "contacts",
			singular: "contact",
			fields: []connector.Param{
				str("email", "properties.email", "Email address"),
				str("firstname", "properties.firstname", "First name"),
				str("lastname", "properties.lastname", "Last name"),
				str("phone", "properties.phone", "Phone number"),
				str("company", "properties.company", "Company name"),
				str("lifecycle-stage", "properties.lifecyclestage", "Lifecycle stage"),
			},
			columns: []connector.Column{
				col("ID", "id"),
				col("EMAIL", "properties.email"),
				col("FIRST", "properties.firstname"),
				col("LAST", "properties.lastname"),
				when("UPDATED", "updatedAt"),
			},
		},
		{
			name:     "companies",
			singular: "company",
			fields: []connector.Param{
				str("name", "properties.name", "Company name"),
				str("domain", "properties.domain", "Website domain"),
				str("industry", "properties.industry", "Industry"),
				str("city", "properties.city", "City"),
			},
			columns: []connector.Column{
				col("ID", "id"),
				col("NAME", "properties.name"),
				col("DOMAIN", "properties.domain"),
				when("UPDATED", "updatedAt"),
			},
		},
		{
			name:     "deals",
			singular: "deal",
			fields: []connector.Param{
				str("dealname", "properties.dealname", "Deal name"),
				str("amount", "properties.amount", "Amount"),
				str("dealstage", "properties.dealstage", "Deal stage id"),
				str("pipeline", "properties.pipeline", "Pipeline id"),
				str("close-date", "properties.closedate", "Close date (ISO 8601)"),
			},
			columns: []connector.Column{
				col("ID", "id"),
				col("NAME", "properties.dealname"),
				col("STAGE", "properties.dealstage"),
				col("AMOUNT", "properties.amount"),
				when("UPDATED", "updatedAt"),
			},
		},
	}

	resources := make([]connector.Resource, 0, len(objects)+1)
	for _, obj := range objects {
		resources = append(resources, obj.resource())
	}
	resources = append(resources, hubspotAssociations())

	return &connector.Connector{
		Name:         "hubspot",
		Title:        "HubSpot",
		BaseURL:      "https://api.hubapi.com",
		MultiAccount: true,
		Keys: []connector.Key{
			{Name: "HUBSPOT_ACCESS_TOKEN", Description: "Private app access token (pat-...)"},
		},
		Authorize: func(set *credentials.Set) (auth.Authorizer, error) {
			token, err := set.Require("HUBSPOT_ACCESS_TOKEN")
			if err != nil {
				return nil, err
			}
			return auth.BearerAuth{Token: token}, nil
		},
		Resources: resources,
	}
}

func (o crmObject) resource() connector.Resource {
	base := "/crm/v3/objects/" + o.name
	id := []connector.Arg{arg("id", "HubSpot "+o.singular+" id")}
	properties := str("properties", "properties", "Comma separated properties to return")

	return connector.Resource{
		Name:  o.name,
		Short: "CRM " + o.name,
		Operations: []connector.Operation{
			{
				Verb: "list", Short: "List " + o.name, Method: get, Path: base,
				Query: []connector.Param{
					num("limit", "limit", "Page size (max 100)"),
					str("after", "after", "Paging cursor"),
					properties,
					boolean("archived", "archived", "List archived records"),
				},
				List: &connector.ListSpec{
					ItemsKey: "results",
					Cursor: &connector.Cursor{
						Style: connector.TokenPages, Param: "after", Next: "paging.next.after",
						LimitParam: "limit", Limit: 100,
					},
				},
				Columns: o.columns,
			},
			{
				Verb: "get", Short: "Get a " + o.singular, Method: get, Path: base + "/{id}",
				Args: id,
				Query: []connector.Param{
					properties,
					str("associations", "associations", "Comma separated object types to include associations for"),
				},
				Columns: o.columns,
			},
			{
				Verb: "create", Short: "Create a " + o.singular, Method: post, Path: base,
				Fields:  o.fields,
				Data:    true,
				Columns: o.columns,
			},
			{
				Verb: "update", Short: "Update a " + o.singular, Method: patch, Path: base + "/{id}",
				Args:    id,
				Fields:  o.fields,
				Data:    true,
				Columns: o.columns,
			},
			{
				Verb: "delete", Short: "Archive a " + o.singular, Method: del, Path: base + "/{id}",
				Args:        id,
				Destructive: true,
			},
			{
				Verb: "search", Short: "Search " + o.name, Method: post, Path: base + "/search",
				Fields: []connector.Param{
					str("query", "query", "Full text query"),
					num("limit", "limit", "Page size (max 200)"),
					str("after", "after", "Paging cursor"),
					list("properties", "properties", "Properties to return (comma separated)"),
					raw("filters", "filterGroups", "Filter groups as a JSON array"),
				},
				Data:    true,
				List:    &connector.ListSpec{ItemsKey: "results"},
				Columns: o.columns,
			},
		},
	}
}

func hubspotAssociations() connector.Resource {
	from := []connector.Arg{
		arg("from_type", "Source object type (contacts, companies, deals)"),
		arg("from_id", "Source object id"),
		arg("to_type", "Target object type"),
	}
	pair := append(append([]connector.Arg(nil), from...), arg("to_id", "Target object id"))

	return connector.Resource{
		Name:  "associations",
		Short: "Links between CRM records",
		Operations: []connector.Operation{
			{
				Verb: "list", Short: "List associations", Method: get,
				Path: "/crm/v4/objects/{from_type}/{from_id}/associations/{to_type}",
				Args: from,
				List: &connector.ListSpec{
					ItemsKey: "results",
					Cursor:   &connector.Cursor{Style: connector.TokenPages, Param: "after", Next: "paging.next.after"},
				},
				Columns: []connector.Column{col("TO", "toObjectId"), col("TYPE", "associationTypes.0.label")},
			},
			{
				Verb: "create", Short: "Associate two records (default type)", Method: put,
				Path: "/crm/v4/objects/{from_type}/{from_id}/associations/default/{to_type}/{to_id}",
				Args: pair,
			},
			{
				Verb: "remove", Short: "Remove all associations between two records", Method: del,
				Path:        "/crm/v4/objects/{from_type}/{from_id}/associations/{to_type}/{to_id}",
				Args:        pair,
				Destructive: true,
			},
		},
	}
}
