package collection

import (
	"fmt"
	"os"
	"path/filepath"
)

const sampleWorkspace = `globals:
  - key: userAgent
    value: hitcase
environments:
  local:
    - key: host
      value: localhost:8080
selected_environment: local
`

const sampleCollection = `name: Example
envs:
  - key: apiPrefix
    value: /api
testcases:
  smoke: {}
pre_request_script: |
  hitcase.addHeader("User-Agent", hitcase.getEnv("userAgent"));
requests:
  - name: Health
    method: GET
    url: "http://{{host}}{{apiPrefix}}/health"
    test_script: |
      hitcase.test("status is 200", () => {
        assert(200, response.status);
      });
`

// Init writes an example workspace into dir. Existing files are never
// overwritten.
func Init(dir string) ([]string, error) {
	if err := os.MkdirAll(filepath.Join(dir, CollectionsDir), 0o755); err != nil {
		return nil, err
	}

	files := []struct {
		path    string
		content string
	}{
		{filepath.Join(dir, WorkspaceFile), sampleWorkspace},
		{filepath.Join(dir, CollectionsDir, "example.yaml"), sampleCollection},
	}

	var written []string
	for _, f := range files {
		if _, err := os.Stat(f.path); err == nil {
			return written, fmt.Errorf("%s already exists", f.path)
		}
		if err := os.WriteFile(f.path, []byte(f.content), 0o644); err != nil {
			return written, err
		}
		written = append(written, f.path)
	}
	return written, nil
}
