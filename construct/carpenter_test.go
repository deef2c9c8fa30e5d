package construct

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cfninit/cfninit/model"
	"github.com/cfninit/cfninit/tools"
)

func newTestContext() *tools.Context {
	return &tools.Context{Changes: model.NewChanges()}
}

func TestBuildSingleConfigWritesFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "hello.txt")

	doc := []byte(`{
		"AWS::CloudFormation::Init": {
			"config": {
				"files": {
					"` + target + `": {"content": "hello\n", "mode": "000644"}
				}
			}
		}
	}`)
	m, err := model.ParseModel(doc)
	if err != nil {
		t.Fatalf("ParseModel: %v", err)
	}
	ctx := newTestContext()
	if err := Build(m, []string{model.DefaultConfigSetName}, ctx); err != nil {
		t.Fatalf("Build: %v", err)
	}
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("reading written file: %v", err)
	}
	if string(got) != "hello\n" {
		t.Errorf("content = %q, want %q", got, "hello\n")
	}
}

func TestBuildRejectsCyclicConfigSetsWithoutRunningTools(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "should-not-exist.txt")

	doc := []byte(`{
		"AWS::CloudFormation::Init": {
			"configSets": {
				"A": [{"ConfigSet": "B"}],
				"B": [{"ConfigSet": "A"}]
			},
			"c1": {
				"files": {"` + target + `": {"content": "x"}}
			}
		}
	}`)
	m, err := model.ParseModel(doc)
	if err != nil {
		t.Fatalf("ParseModel: %v", err)
	}
	ctx := newTestContext()
	if err := Build(m, []string{"A"}, ctx); err == nil {
		t.Fatal("expected CircularConfigSetDependencyError, got nil")
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Errorf("expected no file to be written on a cyclic build, stat err = %v", err)
	}
}

func TestBuildUnknownConfigSetName(t *testing.T) {
	m, err := model.ParseModel([]byte(`{"AWS::CloudFormation::Init": {"config": {}}}`))
	if err != nil {
		t.Fatalf("ParseModel: %v", err)
	}
	ctx := newTestContext()
	if err := Build(m, []string{"nonexistent"}, ctx); err == nil {
		t.Fatal("expected NoSuchConfigSetError, got nil")
	}
}
