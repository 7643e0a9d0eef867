// Package drupalentity provides a client-side model of a Drupal content entity
// exchanged over the JSON:API module.
//
// An Entity holds the last known field state of a resource together with a
// sparse change overlay recording the fields edited since construction or the
// last hydration. The entity serializes itself into JSON:API documents and
// builds request descriptors (method, URL, headers, body) for the standard
// Drupal JSON:API routes. Requests are never sent: executing them, retrying and
// authenticating is left to the caller.
//
// Fields
//
// Every field is either an attribute (any JSON value) or a relationship (a
// reference descriptor of the form {"data": ...}). A field name maps to exactly
// one kind; editing a name with the other kind replaces it.
//
// Uploads
//
// File uploads read a File fully into memory before the descriptor is
// returned. File stores for memory, the local filesystem and S3 live under the
// source subpackages.
package drupalentity
