// Package secretsapp is the authentication core of the Secrets app: a
// small multi-provider gateway where visitors register with a local
// password or federate through Google/Facebook OAuth, and authenticated
// sessions gate a shared "secrets" wall.
//
// # Architecture
//
// User: the canonical identity record. Every login, whichever scheme
// authenticated it, resolves to one User carrying its identity anchors
// (username, google id, facebook id) directly.
//
// LocalAuth: verifies and registers username/password accounts. Hashes
// are bcrypt; unknown-user and wrong-password logins are externally
// indistinguishable.
//
// Resolver: maps a verified (provider, providerID) pair to a User using
// the store's atomic find-or-create, so concurrent callbacks for the
// same federated id never mint duplicate accounts.
//
// Gateway: binds the resolved user to the session. The serialized
// payload is just the user id, carried in an scs server session plus a
// signed JWT cookie; the middleware rebuilds the full User on each
// request and stale tokens degrade to anonymous.
//
// # Basic Usage
//
// Pick a store and wire the pieces:
//
//	store := fs.NewFSUserStore("/var/data/secretsapp")
//	gw := secretsapp.New("SecretsApp", store)
//
//	localAuth := &secretsapp.LocalAuth{
//	    Store:      store,
//	    HandleUser: gw.BindUserAndRedirect,
//	}
//
//	google := oauth2.NewGoogleOAuth2("", "", "", gw.SaveUserAndRedirect)
//	gw.AddAuth("/google", google)
//
//	mux := http.NewServeMux()
//	mux.Handle("/auth/", http.StripPrefix("/auth", gw.Handler()))
//	mux.Handle("/login", localAuth)
//	mux.Handle("/register", http.HandlerFunc(localAuth.HandleSignup))
//	http.ListenAndServe(":3000", gw.Session.LoadAndSave(gw.Middleware.ExtractUser(mux)))
//
// Protected routes wrap their handler in gw.Middleware.EnsureUser and
// read the user with secretsapp.UserFromRequest.
//
// # Store Implementations
//
// stores/fs keeps JSON files on disk and suits development and tests.
// stores/gorm targets Postgres and enforces anchor uniqueness with
// database indexes. stores/gae does the same on Cloud Datastore using
// transactional named keys.
package secretsapp
