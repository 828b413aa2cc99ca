// Package kubeconfig fetches the admin kubeconfig from a control-plane
// node and folds it into the operator's local kubeconfig file.
//
// The file k3s writes on the server points at the loopback address and
// names everything "default". Fetch rewrites the endpoint to the
// load-balanced proxy URL and renames the entries after the cluster, so
// several clusters can live in one kubeconfig side by side. Merge
// removes any prior entries that point at the same server before
// inserting, which makes repeated merges converge instead of piling up
// duplicates.
package kubeconfig
