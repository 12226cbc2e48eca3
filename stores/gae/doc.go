// Package gae provides a Google Cloud Datastore UserStore for the
// secrets app.
//
// Identity anchors are modeled as their own entities under named keys
// ("google:123", username lowercased), created in the same transaction
// as the user. Datastore's transactional get-then-put over a named key
// gives the federated find-or-create its atomicity: two concurrent
// resolves for one provider id contend on the same key and exactly one
// creates the user.
package gae
