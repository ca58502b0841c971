package catalog

import (
	"github.com/gorewood/patchbay/internal/auth"
	"github.com/gorewood/patchbay/internal/connector"
	"github.com/gorewood/patchbay/internal/credentials"
)

// X (formerly Twitter) API v2 with OAuth 1.0a user context.
func X() *connector.Connector {
	tweetID := []connector.Arg{arg("tweet_id", "Post id")}
	tweetFields := connector.Param{
		Flag: "tweet-fields", Key: "tweet.fields", Usage: "Comma separated tweet fields",
		Default: "created_at,public_metrics,author_id",
	}
	keys := []string{"X_API_KEY", "X_API_SECRET", "X_ACCESS_TOKEN", "X_ACCESS_TOKEN_SECRET"}

	return &connector.Connector{
		Name:    "x",
		Title:   "X",
		BaseURL: "https://api.x.com/2",
		Keys: []connector.Key{
			{Name: "X_API_KEY", Description: "Consumer API key"},
			{Name: "X_API_SECRET", Description: "Consumer API secret"},
			{Name: "X_ACCESS_TOKEN", Description: "User access token"},
			{Name: "X_ACCESS_TOKEN_SECRET", Description: "User access token secret"},
		},
		Authorize: func(set *credentials.Set) (auth.Authorizer, error) {
			values := make([]string, len(keys))
			for i, key := range keys {
				v, err := set.Require(key)
				if err != nil {
					return nil, err
				}
				values[i] = v
			}
			return auth.OAuth1Auth{
				ConsumerKey:    values[0],
				ConsumerSecret: values[1],
				Token:          values[2],
				TokenSecret:    values[3],
			}, nil
		},
		Resources: []connector.Resource{
			{
				Name:  "users",
				Short: "The authenticated user",
				Operations: []connector.Operation{
					{
						Verb: "me", Short: "Show the authenticated user", Method: get, Path: "/users/me",
						Query: []connector.Param{
							{Flag: "user-fields", Key: "user.fields", Usage: "Comma separated user fields", Default: "created_at,public_metrics"},
						},
						Columns: []connector.Column{
							col("ID", "data.id"),
							col("USERNAME", "data.username"),
							col("NAME", "data.name"),
							{Header: "FOLLOWERS", Path: "data.public_metrics.followers_count", Format: connector.Count},
						},
					},
				},
			},
			{
				Name:  "tweets",
				Short: "Posts",
				Operations: []connector.Operation{
					{
						Verb: "get", Short: "Get a post", Method: get, Path: "/tweets/{tweet_id}",
						Args:  tweetID,
						Query: []connector.Param{tweetFields},
						Columns: []connector.Column{
							col("ID", "data.id"),
							col("TEXT", "data.text"),
							when("CREATED", "data.created_at"),
							{Header: "LIKES", Path: "data.public_metrics.like_count", Format: connector.Count},
						},
					},
					{
						Verb: "post", Short: "Publish a post", Method: post, Path: "/tweets",
						Fields: []connector.Param{
							required(str("text", "text", "Post text")),
							str("reply-to", "reply.in_reply_to_tweet_id", "Reply to this post id"),
							str("quote", "quote_tweet_id", "Quote this post id"),
						},
						Data:    true,
						Columns: []connector.Column{col("ID", "data.id"), col("TEXT", "data.text")},
					},
					{
						Verb: "delete", Short: "Delete a post", Method: del, Path: "/tweets/{tweet_id}",
						Args:        tweetID,
						Destructive: true,
						Columns:     []connector.Column{col("DELETED", "data.deleted")},
					},
					{
						Verb: "search", Short: "Search posts from the last 7 days", Method: get, Path: "/tweets/search/recent",
						Query: []connector.Param{
							required(str("query", "query", "Search query")),
							num("max-results", "max_results", "Results per page (10-100)"),
							tweetFields,
						},
						List: &connector.ListSpec{
							ItemsKey: "data",
							Cursor:   &connector.Cursor{Style: connector.TokenPages, Param: "next_token", Next: "meta.next_token"},
						},
						Columns: []connector.Column{col("ID", "id"), col("TEXT", "text"), when("CREATED", "created_at")},
					},
				},
			},
		},
	}
}
