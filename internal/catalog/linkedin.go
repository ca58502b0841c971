package catalog

import (
	"github.com/gorewood/patchbay/internal/auth"
	"github.com/gorewood/patchbay/internal/connector"
	"github.com/gorewood/patchbay/internal/credentials"
)

// LinkedInVersion is the default Marketing API version header.
const LinkedInVersion = "202501"

// LinkedIn member posts through the versioned REST API.
func LinkedIn() *connector.Connector {
	postURN := []connector.Arg{{Name: "post_urn", Usage: "Post URN (urn:li:share:... or urn:li:ugcPost:...)", URN: true}}

	return &connector.Connector{
		Name:    "linkedin",
		Title:   "LinkedIn",
		BaseURL: "https://api.linkedin.com",
		Keys: []connector.Key{
			{Name: "LINKEDIN_ACCESS_TOKEN", Description: "Member access token with w_member_social and openid scopes"},
			{Name: "LINKEDIN_PERSON_URN", Description: "Default post author (urn:li:person:...)", Optional: true},
			{Name: "LINKEDIN_VERSION", Description: "API version header (YYYYMM)", Optional: true, Default: LinkedInVersion},
		},
		Authorize: func(set *credentials.Set) (auth.Authorizer, error) {
			token, err := set.Require("LINKEDIN_ACCESS_TOKEN")
			if err != nil {
				return nil, err
			}
			return auth.BearerAuth{Token: token}, nil
		},
		Headers: func(set *credentials.Set) map[string]string {
			return map[string]string{
				"LinkedIn-Version":          set.GetOr("LINKEDIN_VERSION", LinkedInVersion),
				"X-Restli-Protocol-Version": "2.0.0",
			}
		},
		Resources: []connector.Resource{
			{
				Name:  "profile",
				Short: "The authenticated member",
				Operations: []connector.Operation{
					{
						Verb: "me", Short: "Show the authenticated member", Method: get, Path: "/v2/userinfo",
						Columns: []connector.Column{col("SUB", "sub"), col("NAME", "name"), col("EMAIL", "email")},
					},
				},
			},
			{
				Name:  "posts",
				Short: "Member posts",
				Operations: []connector.Operation{
					{
						Verb: "create", Short: "Publish a post", Method: post, Path: "/rest/posts",
						Fields: []connector.Param{
							required(str("text", "commentary", "Post text")),
							{Flag: "author", Key: "author", Usage: "Author URN (defaults to LINKEDIN_PERSON_URN)", Required: true, FromKey: "LINKEDIN_PERSON_URN"},
							{Flag: "visibility", Key: "visibility", Usage: "PUBLIC or CONNECTIONS", Default: "PUBLIC"},
						},
						Static: map[string]any{
							"distribution": map[string]any{
								"feedDistribution":               "MAIN_FEED",
								"targetEntities":                 []any{},
								"thirdPartyDistributionChannels": []any{},
							},
							"lifecycleState":            "PUBLISHED",
							"isReshareDisabledByAuthor": false,
						},
						Data:     true,
						IDHeader: "x-restli-id",
					},
					{
						Verb: "get", Short: "Get a post", Method: get, Path: "/rest/posts/{post_urn}",
						Args: postURN,
						Columns: []connector.Column{
							col("ID", "id"),
							col("AUTHOR", "author"),
							col("TEXT", "commentary"),
							when("PUBLISHED", "publishedAt"),
						},
					},
					{
						Verb: "delete", Short: "Delete a post", Method: del, Path: "/rest/posts/{post_urn}",
						Args:        postURN,
						Destructive: true,
					},
				},
			},
		},
	}
}
