package config

// Identity Toolkit endpoints used for password sign-in and token refresh.
// The Admin SDK cannot verify a password, so these go over REST with the web API key.
var (
	FirebaseSignInURL  = "https://identitytoolkit.googleapis.com/v1/accounts:signInWithPassword"
	FirebaseRefreshURL = "https://securetoken.googleapis.com/v1/token"
)
