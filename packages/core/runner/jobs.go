package runner

import (
	"context"

	"github.com/abdul-hamid-achik/hitcase/packages/collection"
	"github.com/abdul-hamid-achik/hitcase/packages/core/env"
	"github.com/abdul-hamid-achik/hitcase/packages/script"
)

// GetTestGroupJobs expands folder into one job per (request, testcase)
// combination, recursing into sub-folders. parent is the testcase the folder
// runs under, or nil for a collection root.
func GetTestGroupJobs(envs env.Envs, scripts *collection.ScriptTree, collectionPath string, parent *collection.Testcase, folder *collection.Folder) []RunInfo {
	var jobs []RunInfo
	for _, tc := range collection.SortedTestcases(folder.Testcases) {
		if parent != nil {
			tc.Merge(folder.Name, *parent)
		} else {
			tc.EntryName = folder.Name
		}
		jobs = append(jobs, folderJobs(envs, scripts, collectionPath, tc, folder)...)
	}
	return jobs
}

func folderJobs(envs env.Envs, scripts *collection.ScriptTree, collectionPath string, tc collection.Testcase, folder *collection.Folder) []RunInfo {
	shared := script.NewSharedMap()

	var jobs []RunInfo
	for _, child := range folder.Children() {
		jobs = append(jobs, GetTestGroupJobs(envs, scripts, collectionPath+"/"+child.Name, &tc, child)...)
	}
	for _, rec := range folder.Requests {
		jobs = append(jobs, recordJobs(envs, scripts, collectionPath, tc, folder, rec, shared)...)
	}
	return jobs
}

func recordJobs(envs env.Envs, scripts *collection.ScriptTree, collectionPath string, parent collection.Testcase, folder *collection.Folder, rec *collection.Record, shared *script.SharedMap) []RunInfo {
	pre := scripts.PreRequestScopes(folder.Path)
	if rec.PreRequestScript != "" {
		pre = append(pre, collection.ScriptScope{Script: rec.PreRequestScript, Scope: collectionPath + "/" + rec.Name})
	}
	test := scripts.TestScopes(folder.Path)
	if rec.TestScript != "" {
		test = append(test, collection.ScriptScope{Script: rec.TestScript, Scope: collectionPath + "/" + rec.Name})
	}

	var jobs []RunInfo
	for _, tc := range collection.SortedTestcases(rec.Testcases) {
		tc.Merge(rec.Name, parent)
		jobs = append(jobs, RunInfo{
			Shared:            shared,
			CollectionPath:    collectionPath,
			RequestName:       rec.Name,
			Request:           folder.RequestFor(rec),
			Envs:              envs,
			PreRequestScripts: pre,
			TestScripts:       test,
			Testcase:          tc,
		})
	}
	return jobs
}

// RunRecord runs a single request of folder under every testcase it
// declares, merged with parent. All its jobs share one SharedMap and run
// concurrently.
func (r *Runner) RunRecord(ctx context.Context, envs env.Envs, scripts *collection.ScriptTree, parent collection.Testcase, collectionPath string, folder *collection.Folder, rec *collection.Record, results *Results) error {
	jobs := recordJobs(envs, scripts, collectionPath, parent, folder, rec, script.NewSharedMap())
	return r.RunJobs(ctx, jobs, results, true)
}

// RunTestGroup expands folder into jobs and runs them to completion.
func (r *Runner) RunTestGroup(ctx context.Context, envs env.Envs, scripts *collection.ScriptTree, collectionPath string, parent *collection.Testcase, folder *collection.Folder, fast bool, results *Results) error {
	jobs := GetTestGroupJobs(envs, scripts, collectionPath, parent, folder)
	return r.RunJobs(ctx, jobs, results, fast)
}
