package handlers

// HandlerBundle groups all endpoint handlers for route registration.
type HandlerBundle struct {
	Session      *SessionHandler
	Auth         *AuthHandler
	Cases        *CaseHandler
	Profile      *ProfileHandler
	Subscription *SubscriptionHandler
	News         *NewsHandler
	Health       *HealthHandler
}
