package catalog

import (
	"github.com/gorewood/patchbay/internal/auth"
	"github.com/gorewood/patchbay/internal/connector"
	"github.com/gorewood/patchbay/internal/credentials"
)

// ClickUp task management.
func ClickUp() *connector.Connector {
	taskColumns := []connector.Column{
		col("ID", "id"),
		col("NAME", "name"),
		col("STATUS", "status.status"),
		when("DUE", "due_date"),
		when("UPDATED", "date_updated"),
	}
	taskFields := []connector.Param{
		str("description", "description", "Task description (markdown)"),
		str("status", "status", "Status name"),
		num("priority", "priority", "Priority: 1 urgent, 2 high, 3 normal, 4 low"),
		num("due-date", "due_date", "Due date as Unix milliseconds"),
		raw("assignees", "assignees", "Assignee user ids as a JSON array"),
	}

	return &connector.Connector{
		Name:    "clickup",
		Title:   "ClickUp",
		BaseURL: "https://api.clickup.com/api/v2",
		Keys: []connector.Key{
			{Name: "CLICKUP_API_TOKEN", Description: "Personal API token (pk_...) from Settings > Apps"},
		},
		Authorize: func(set *credentials.Set) (auth.Authorizer, error) {
			token, err := set.Require("CLICKUP_API_TOKEN")
			if err != nil {
				return nil, err
			}
			return auth.HeaderAuth{Token: token}, nil
		},
		NotFoundCodes: []string{"ITEM_017"},
		Resources: []connector.Resource{
			{
				Name:  "workspaces",
				Short: "Workspaces (teams) the token can access",
				Operations: []connector.Operation{
					{
						Verb: "list", Short: "List workspaces", Method: get, Path: "/team",
						List:    &connector.ListSpec{ItemsKey: "teams"},
						Columns: []connector.Column{col("ID", "id"), col("NAME", "name")},
					},
				},
			},
			{
				Name:  "spaces",
				Short: "Spaces in a workspace",
				Operations: []connector.Operation{
					{
						Verb: "list", Short: "List spaces", Method: get, Path: "/team/{team_id}/space",
						Args:    []connector.Arg{arg("team_id", "Workspace id")},
						Query:   []connector.Param{boolean("archived", "archived", "Include archived spaces")},
						List:    &connector.ListSpec{ItemsKey: "spaces"},
						Columns: []connector.Column{col("ID", "id"), col("NAME", "name")},
					},
				},
			},
			{
				Name:  "folders",
				Short: "Folders in a space",
				Operations: []connector.Operation{
					{
						Verb: "list", Short: "List folders", Method: get, Path: "/space/{space_id}/folder",
						Args:    []connector.Arg{arg("space_id", "Space id")},
						Query:   []connector.Param{boolean("archived", "archived", "Include archived folders")},
						List:    &connector.ListSpec{ItemsKey: "folders"},
						Columns: []connector.Column{col("ID", "id"), col("NAME", "name"), col("TASKS", "task_count")},
					},
				},
			},
			{
				Name:  "lists",
				Short: "Lists in a folder",
				Operations: []connector.Operation{
					{
						Verb: "list", Short: "List lists", Method: get, Path: "/folder/{folder_id}/list",
						Args:    []connector.Arg{arg("folder_id", "Folder id")},
						Query:   []connector.Param{boolean("archived", "archived", "Include archived lists")},
						List:    &connector.ListSpec{ItemsKey: "lists"},
						Columns: []connector.Column{col("ID", "id"), col("NAME", "name"), col("TASKS", "task_count")},
					},
				},
			},
			{
				Name:  "tasks",
				Short: "Tasks in a list",
				Operations: []connector.Operation{
					{
						Verb: "list", Short: "List tasks", Method: get, Path: "/list/{list_id}/task",
						Args: []connector.Arg{arg("list_id", "List id")},
						Query: []connector.Param{
							num("page", "page", "Page number, from 0"),
							boolean("include-closed", "include_closed", "Include closed tasks"),
							boolean("archived", "archived", "Include archived tasks"),
							boolean("subtasks", "subtasks", "Include subtasks"),
							list("status", "statuses[]", "Filter by status (comma separated)"),
							list("assignee", "assignees[]", "Filter by assignee id (comma separated)"),
						},
						List: &connector.ListSpec{
							ItemsKey: "tasks",
							Cursor:   &connector.Cursor{Style: connector.NumberedPages, Param: "page", Done: "last_page"},
						},
						Columns: taskColumns,
					},
					{
						Verb: "get", Short: "Get a task", Method: get, Path: "/task/{task_id}",
						Args: []connector.Arg{arg("task_id", "Task id")},
						Query: []connector.Param{
							boolean("include-subtasks", "include_subtasks", "Include subtasks"),
							boolean("markdown", "include_markdown_description", "Return the description as markdown"),
						},
						Columns: []connector.Column{
							col("ID", "id"),
							col("NAME", "name"),
							col("STATUS", "status.status"),
							col("LIST", "list.name"),
							col("URL", "url"),
							when("CREATED", "date_created"),
							when("DUE", "due_date"),
						},
					},
					{
						Verb: "create", Short: "Create a task", Method: post, Path: "/list/{list_id}/task",
						Args:    []connector.Arg{arg("list_id", "List id")},
						Fields:  append([]connector.Param{required(str("name", "name", "Task name"))}, taskFields...),
						Data:    true,
						Columns: []connector.Column{col("ID", "id"), col("NAME", "name"), col("URL", "url")},
					},
					{
						Verb: "update", Short: "Update a task", Method: put, Path: "/task/{task_id}",
						Args:    []connector.Arg{arg("task_id", "Task id")},
						Fields:  append([]connector.Param{str("name", "name", "Task name")}, taskFields...),
						Data:    true,
						Columns: []connector.Column{col("ID", "id"), col("NAME", "name"), col("STATUS", "status.status")},
					},
					{
						Verb: "delete", Short: "Delete a task", Method: del, Path: "/task/{task_id}",
						Args:        []connector.Arg{arg("task_id", "Task id")},
						Destructive: true,
					},
				},
			},
			{
				Name:  "comments",
				Short: "Task comments",
				Operations: []connector.Operation{
					{
						Verb: "list", Short: "List comments on a task", Method: get, Path: "/task/{task_id}/comment",
						Args: []connector.Arg{arg("task_id", "Task id")},
						List: &connector.ListSpec{ItemsKey: "comments"},
						Columns: []connector.Column{
							col("ID", "id"),
							col("USER", "user.username"),
							col("COMMENT", "comment_text"),
							when("DATE", "date"),
						},
					},
					{
						Verb: "create", Short: "Comment on a task", Method: post, Path: "/task/{task_id}/comment",
						Args: []connector.Arg{arg("task_id", "Task id")},
						Fields: []connector.Param{
							required(str("text", "comment_text", "Comment text")),
							boolean("notify-all", "notify_all", "Notify everyone on the task"),
						},
						Columns: []connector.Column{col("ID", "id"), when("DATE", "date")},
					},
				},
			},
		},
	}
}
