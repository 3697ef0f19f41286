// Package collection loads hitcase workspaces.
//
// A workspace directory holds workspace.yaml (globals, environments and the
// selected environment) and a collections/ directory with one YAML file per
// collection. Each collection is a tree of folders and requests; every node
// may declare testcases and pre-request/test scripts.
//
// Folders live in a Tree keyed by path ("Collection/Folder/Sub") and refer to
// their children by path. Testcases merge down the tree: a child inherits its
// parent's values and records the parent's "entry:name" label in ParentPath.
package collection
