package catalog

import (
	"github.com/gorewood/patchbay/internal/auth"
	"github.com/gorewood/patchbay/internal/connector"
	"github.com/gorewood/patchbay/internal/credentials"
)

// Make (make.com) automation scenarios.
func Make() *connector.Connector {
	scenarioID := []connector.Arg{arg("scenario_id", "Scenario id")}
	team := connector.Param{
		Flag: "team-id", Key: "teamId", Usage: "Team id (defaults to MAKE_TEAM_ID)",
		Kind: connector.Int, Required: true, FromKey: "MAKE_TEAM_ID",
	}
	offsetPages := &connector.Cursor{
		Style: connector.OffsetPages, Param: "pg[offset]",
		LimitParam: "pg[limit]", Limit: 100,
	}
	scenarioColumns := []connector.Column{
		col("ID", "scenario.id"),
		col("NAME", "scenario.name"),
		col("ACTIVE", "scenario.isActive"),
		when("EDITED", "scenario.lastEdit"),
	}

	return &connector.Connector{
		Name:    "make",
		Title:   "Make",
		BaseURL: "https://{MAKE_ZONE}.make.com/api/v2",
		Keys: []connector.Key{
			{Name: "MAKE_API_TOKEN", Description: "API token from Profile > API access"},
			{Name: "MAKE_ZONE", Description: "Zone of your organization such as eu1, eu2, us1", Optional: true, Default: "eu1"},
			{Name: "MAKE_TEAM_ID", Description: "Default team id for team scoped lists", Optional: true},
		},
		Authorize: func(set *credentials.Set) (auth.Authorizer, error) {
			token, err := set.Require("MAKE_API_TOKEN")
			if err != nil {
				return nil, err
			}
			return auth.HeaderAuth{Prefix: "Token", Token: token}, nil
		},
		Resources: []connector.Resource{
			{
				Name:  "scenarios",
				Short: "Automation scenarios",
				Operations: []connector.Operation{
					{
						Verb: "list", Short: "List scenarios", Method: get, Path: "/scenarios",
						Query: []connector.Param{team, num("folder-id", "folderId", "Only scenarios in this folder")},
						List:  &connector.ListSpec{ItemsKey: "scenarios", Cursor: offsetPages},
						Columns: []connector.Column{
							col("ID", "id"),
							col("NAME", "name"),
							col("ACTIVE", "isActive"),
							when("EDITED", "lastEdit"),
						},
					},
					{
						Verb: "get", Short: "Get a scenario", Method: get, Path: "/scenarios/{scenario_id}",
						Args:    scenarioID,
						Columns: scenarioColumns,
					},
					{
						Verb: "run", Short: "Run a scenario now", Method: post, Path: "/scenarios/{scenario_id}/run",
						Args: scenarioID,
						Fields: []connector.Param{
							raw("input", "data", "Scenario inputs as a JSON object"),
							boolean("responsive", "responsive", "Wait for the run to finish"),
						},
						Data:    true,
						Columns: []connector.Column{col("EXECUTION", "executionId"), col("STATUS", "status")},
					},
					{
						Verb: "activate", Short: "Activate a scenario", Method: post, Path: "/scenarios/{scenario_id}/start",
						Args:    scenarioID,
						Columns: scenarioColumns,
					},
					{
						Verb: "deactivate", Short: "Deactivate a scenario", Method: post, Path: "/scenarios/{scenario_id}/stop",
						Args:    scenarioID,
						Columns: scenarioColumns,
					},
					{
						Verb: "delete", Short: "Delete a scenario", Method: del, Path: "/scenarios/{scenario_id}",
						Args:        scenarioID,
						Destructive: true,
					},
				},
			},
			{
				Name:  "executions",
				Short: "Scenario execution logs",
				Operations: []connector.Operation{
					{
						Verb: "list", Short: "List recent executions of a scenario", Method: get, Path: "/scenarios/{scenario_id}/logs",
						Args:  scenarioID,
						Query: []connector.Param{str("status", "status", "Filter by status (success, warning, error)")},
						List:  &connector.ListSpec{ItemsKey: "scenarioLogs", Cursor: offsetPages},
						Columns: []connector.Column{
							col("ID", "imtId"),
							col("STATUS", "status"),
							col("OPERATIONS", "operations"),
							{Header: "TRANSFER", Path: "transfer", Format: connector.Bytes},
							when("AT", "timestamp"),
						},
					},
				},
			},
			{
				Name:  "hooks",
				Short: "Webhooks and mailhooks",
				Operations: []connector.Operation{
					{
						Verb: "list", Short: "List hooks", Method: get, Path: "/hooks",
						Query:   []connector.Param{team},
						List:    &connector.ListSpec{ItemsKey: "hooks", Cursor: offsetPages},
						Columns: []connector.Column{col("ID", "id"), col("NAME", "name"), col("URL", "url"), col("ENABLED", "enabled")},
					},
				},
			},
		},
	}
}
