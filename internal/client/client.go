package client

// Client groups the per-area clients that share one BaseClient.
type Client struct {
	Auth  Auth
	Users Users
}

// New builds a client bound to one session store and navigator.
func New(cfg Config, store SessionStore, nav Navigator) *Client {
	base := NewBaseClient(cfg, store, nav)
	return &Client{
		Auth:  NewAuth(base),
		Users: NewUsers(base),
	}
}
