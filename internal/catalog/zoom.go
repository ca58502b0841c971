package catalog

import (
	"net/url"

	"github.com/gorewood/patchbay/internal/auth"
	"github.com/gorewood/patchbay/internal/connector"
	"github.com/gorewood/patchbay/internal/credentials"
)

// ZoomTokenURL is Zoom's OAuth token endpoint.
const ZoomTokenURL = "https://zoom.us/oauth/token"

// Zoom meetings and cloud recordings, via a server-to-server OAuth app.
func Zoom() *connector.Connector {
	meetingID := []connector.Arg{arg("meeting_id", "Meeting id")}
	pageToken := &connector.Cursor{Style: connector.TokenPages, Param: "next_page_token", Next: "next_page_token"}
	meetingColumns := []connector.Column{
		col("ID", "id"),
		col("TOPIC", "topic"),
		when("START", "start_time"),
		col("MINUTES", "duration"),
		col("JOIN", "join_url"),
	}
	meetingFields := []connector.Param{
		str("start-time", "start_time", "Start time (RFC 3339)"),
		num("duration", "duration", "Duration in minutes"),
		str("timezone", "timezone", "Time zone such as Europe/Berlin"),
		str("agenda", "agenda", "Agenda"),
		str("password", "password", "Meeting passcode"),
	}

	return &connector.Connector{
		Name:    "zoom",
		Title:   "Zoom",
		BaseURL: "https://api.zoom.us/v2",
		Keys: []connector.Key{
			{Name: "ZOOM_ACCOUNT_ID", Description: "Account id of the server-to-server OAuth app"},
			{Name: "ZOOM_CLIENT_ID", Description: "Client id of the app"},
			{Name: "ZOOM_CLIENT_SECRET", Description: "Client secret of the app"},
			{Name: "ZOOM_TOKEN_URL", Description: "OAuth token endpoint", Optional: true, Default: ZoomTokenURL},
		},
		Authorize: func(set *credentials.Set) (auth.Authorizer, error) {
			account, err := set.Require("ZOOM_ACCOUNT_ID")
			if err != nil {
				return nil, err
			}
			id, err := set.Require("ZOOM_CLIENT_ID")
			if err != nil {
				return nil, err
			}
			secret, err := set.Require("ZOOM_CLIENT_SECRET")
			if err != nil {
				return nil, err
			}
			return auth.ClientCredentialsAuth{
				ClientID:     id,
				ClientSecret: secret,
				TokenURL:     set.GetOr("ZOOM_TOKEN_URL", ZoomTokenURL),
				GrantType:    "account_credentials",
				Params:       url.Values{"account_id": {account}},
			}, nil
		},
		Resources: []connector.Resource{
			{
				Name:  "users",
				Short: "The app's user",
				Operations: []connector.Operation{
					{
						Verb: "me", Short: "Show the authenticated user", Method: get, Path: "/users/me",
						Columns: []connector.Column{
							col("ID", "id"),
							col("EMAIL", "email"),
							col("FIRST", "first_name"),
							col("LAST", "last_name"),
							col("TYPE", "type"),
						},
					},
				},
			},
			{
				Name:  "meetings",
				Short: "Scheduled meetings",
				Operations: []connector.Operation{
					{
						Verb: "list", Short: "List meetings", Method: get, Path: "/users/me/meetings",
						Query: []connector.Param{
							str("type", "type", "scheduled, live, upcoming, upcoming_meetings or previous_meetings"),
							num("page-size", "page_size", "Page size (max 300)"),
						},
						List:    &connector.ListSpec{ItemsKey: "meetings", Cursor: pageToken},
						Columns: meetingColumns,
					},
					{
						Verb: "get", Short: "Get a meeting", Method: get, Path: "/meetings/{meeting_id}",
						Args:    meetingID,
						Columns: meetingColumns,
					},
					{
						Verb: "create", Short: "Schedule a meeting", Method: post, Path: "/users/me/meetings",
						Fields: append([]connector.Param{
							required(str("topic", "topic", "Meeting topic")),
							{Flag: "type", Key: "type", Usage: "1 instant, 2 scheduled, 3 recurring without time, 8 recurring", Kind: connector.Int, Default: "2"},
						}, meetingFields...),
						Data:    true,
						Columns: meetingColumns,
					},
					{
						Verb: "update", Short: "Update a meeting", Method: patch, Path: "/meetings/{meeting_id}",
						Args:   meetingID,
						Fields: append([]connector.Param{str("topic", "topic", "Meeting topic")}, meetingFields...),
						Data:   true,
					},
					{
						Verb: "delete", Short: "Delete a meeting", Method: del, Path: "/meetings/{meeting_id}",
						Args:        meetingID,
						Query:       []connector.Param{boolean("notify", "schedule_for_reminder", "Email registrants about the cancellation")},
						Destructive: true,
					},
					{
						Verb: "end", Short: "End a live meeting for everyone", Method: put, Path: "/meetings/{meeting_id}/status",
						Args:        meetingID,
						Static:      map[string]any{"action": "end"},
						Destructive: true,
					},
				},
			},
			{
				Name:  "recordings",
				Short: "Cloud recordings",
				Operations: []connector.Operation{
					{
						Verb: "list", Short: "List cloud recordings", Method: get, Path: "/users/me/recordings",
						Query: []connector.Param{
							str("from", "from", "Start date (YYYY-MM-DD)"),
							str("to", "to", "End date (YYYY-MM-DD)"),
							num("page-size", "page_size", "Page size (max 300)"),
						},
						List: &connector.ListSpec{ItemsKey: "meetings", Cursor: pageToken},
						Columns: []connector.Column{
							col("ID", "id"),
							col("TOPIC", "topic"),
							when("START", "start_time"),
							{Header: "SIZE", Path: "total_size", Format: connector.Bytes},
						},
					},
					{
						Verb: "get", Short: "Get a meeting's recordings", Method: get, Path: "/meetings/{meeting_id}/recordings",
						Args: meetingID,
						Columns: []connector.Column{
							col("ID", "id"),
							col("TOPIC", "topic"),
							col("FILES", "recording_count"),
							{Header: "SIZE", Path: "total_size", Format: connector.Bytes},
							col("SHARE", "share_url"),
						},
					},
					{
						Verb: "delete", Short: "Move a meeting's recordings to trash", Method: del, Path: "/meetings/{meeting_id}/recordings",
						Args:        meetingID,
						StaticQuery: url.Values{"action": {"trash"}},
						Destructive: true,
					},
					{
						Verb: "recover", Short: "Recover a meeting's recordings from trash", Method: put, Path: "/meetings/{meeting_id}/recordings/status",
						Args:   meetingID,
						Static: map[string]any{"action": "recover"},
					},
				},
			},
		},
	}
}
