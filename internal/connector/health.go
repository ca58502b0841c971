package connector

import "github.com/gorewood/patchbay/internal/credentials"

// Health inspects the connector's default credential file and, for
// multi-account connectors, every sub-account file. No values are returned
// and no network call is made.
func Health(loader *credentials.Loader, conn *Connector) ([]credentials.Status, error) {
	required := conn.RequiredKeys()
	statuses := []credentials.Status{loader.Inspect(conn.Name, "", required)}
	if !conn.MultiAccount {
		return statuses, nil
	}

	accounts, err := loader.Accounts(conn.Name)
	if err != nil {
		return statuses, err
	}
	for _, account := range accounts {
		statuses = append(statuses, loader.Inspect(conn.Name, account, required))
	}
	return statuses, nil
}
