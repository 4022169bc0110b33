// Package api provides typed clients for the Finance API feature endpoints.
// Every call goes through the session manager's authenticated-request
// primitive, which supplies bearer auth, the active-workspace header and the
// single refresh-and-retry on expired credentials.
package api

import "context"

// Doer issues one authenticated JSON request. *session.Manager implements it.
type Doer interface {
	Request(ctx context.Context, method, path string, in, out any) error
}

// Client bundles every feature service behind one session.
type Client struct {
	Accounts     *AccountsService
	Categories   *CategoriesService
	Transactions *TransactionsService
	Statistics   *StatisticsService
	Shopping     *ShoppingService
	Templates    *TemplatesService
	Recurring    *RecurringService
	Currencies   *CurrenciesService
	Workspaces   *WorkspacesService
	Users        *UsersService
}

func New(d Doer) *Client {
	return &Client{
		Accounts:     &AccountsService{d: d},
		Categories:   &CategoriesService{d: d},
		Transactions: &TransactionsService{d: d},
		Statistics:   &StatisticsService{d: d},
		Shopping:     &ShoppingService{d: d},
		Templates:    &TemplatesService{d: d},
		Recurring:    &RecurringService{d: d},
		Currencies:   &CurrenciesService{d: d},
		Workspaces:   &WorkspacesService{d: d},
		Users:        &UsersService{d: d},
	}
}
