// Package auth holds the credential collaborator used by catalog requests.
//
// A TokenSource answers "which bearer token, if any, should the next request
// carry". The empty string means anonymous. TokenStore adds SetToken so login
// and logout flows can change the credential; MemoryStore keeps it for the
// life of the process and KeyringStore persists it in the operating system
// keyring, the CLI counterpart of browser session storage.
//
// Login exchanges an email and password at the catalog's auth endpoint for
// a token and puts it in a TokenStore.
package auth
