package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/hitcase/packages/collection"
	"github.com/abdul-hamid-achik/hitcase/packages/core/config"
	"github.com/abdul-hamid-achik/hitcase/packages/core/env"
	"github.com/abdul-hamid-achik/hitcase/packages/logging"
)

const (
	// dotEnvFile is loaded from the workspace directory into the global layer.
	dotEnvFile = ".env"
	// systemEnvPrefix marks OS variables passed to the global layer, e.g.
	// HITCASE_VAR_token=abc becomes {{token}}.
	systemEnvPrefix = "HITCASE_VAR_"
)

// resolveWorkspace accepts either a path to a workspace directory or a
// workspace name under workspacesDir.
func resolveWorkspace(arg, workspacesDir string) string {
	if isWorkspaceDir(arg) {
		return arg
	}
	return filepath.Join(workspacesDir, arg)
}

func isWorkspaceDir(dir string) bool {
	for _, name := range []string{collection.WorkspaceFile, collection.CollectionsDir} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// openWorkspace loads the workspace, selects environment and layers the
// workspace .env, envFile and HITCASE_VAR_* variables over the globals.
func openWorkspace(arg string, cfg *config.Config, environment, envFile string) (*collection.Workspace, error) {
	dir := resolveWorkspace(arg, cfg.WorkspacesDir)
	ws, err := collection.Load(dir)
	if err != nil {
		return nil, err
	}

	if environment != "" {
		if err := ws.SelectEnvironment(environment); err != nil {
			return nil, err
		}
	}

	files := []string{filepath.Join(dir, dotEnvFile)}
	if envFile != "" {
		files = append(files, envFile)
	}
	for i, file := range files {
		if _, err := os.Stat(file); err != nil {
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("env file: %w", err)
		}
		vars, err := env.DotEnv(file, env.ScopeGlobal)
		if err != nil {
			return nil, err
		}
		logging.Debug("cli", "loaded %d variables from %s", len(vars), file)
		ws.AddGlobals(vars)
	}
	if vars := env.FromSystem(systemEnvPrefix); len(vars) > 0 {
		logging.Debug("cli", "loaded %d variables from %s*", len(vars), systemEnvPrefix)
		ws.AddGlobals(vars)
	}
	return ws, nil
}

// recordTarget is a single request picked with --request.
type recordTarget struct {
	folder *collection.Folder
	record *collection.Record
	parent collection.Testcase
}

// findRecord resolves ref ("Request" or "folder/sub/Request", relative to
// the collection root). The parent testcase follows the first testcase of
// every folder on the way down.
func findRecord(ws *collection.Workspace, root *collection.Folder, ref string) (*recordTarget, error) {
	ref = strings.Trim(ref, "/")
	dir, name := "", ref
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		dir, name = ref[:i], ref[i+1:]
	}

	folderPath := root.Path
	if dir != "" {
		folderPath += "/" + dir
	}
	folder, ok := ws.Tree().Folder(folderPath)
	if !ok {
		return nil, fmt.Errorf("folder %q not found in %s", dir, root.Name)
	}
	rec, ok := folder.Record(name)
	if !ok {
		return nil, fmt.Errorf("request %q not found in %s", name, folderPath)
	}

	var parent collection.Testcase
	for i, f := range ws.Tree().Ancestors(folderPath) {
		tc := collection.SortedTestcases(f.Testcases)[0]
		if i == 0 {
			tc.EntryName = f.Name
		} else {
			tc.Merge(f.Name, parent)
		}
		parent = tc
	}
	return &recordTarget{folder: folder, record: rec, parent: parent}, nil
}
