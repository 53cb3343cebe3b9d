package profile

import (
	"runtime"
	"strings"
)

// Stream names which compiler output carries diagnostics.
type Stream string

const (
	StreamStderr Stream = "stderr"
	StreamStdout Stream = "stdout"
)

// Driver names a generated wrapper the source text is embedded into before
// it is written to the workspace.
type Driver string

const (
	DriverNone Driver = ""
	DriverSQL  Driver = "sql"
)

// Profile describes how to build and run one language.
//
// Command templates may reference {source}, {artifact}, {dir} and {self}
// (the running opencompiler binary). File names may reference {exe}, the
// host's executable suffix.
type Profile struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Source      string   `yaml:"source" json:"source"`
	Artifact    string   `yaml:"artifact,omitempty" json:"artifact,omitempty"`
	Compile     []string `yaml:"compile,omitempty" json:"compile,omitempty"`
	Run         []string `yaml:"run" json:"run"`
	Diagnostics Stream   `yaml:"diagnostics,omitempty" json:"diagnostics,omitempty"`
	Driver      Driver   `yaml:"driver,omitempty" json:"driver,omitempty"`
}

// NeedsCompile reports whether a build step precedes the run.
func (p Profile) NeedsCompile() bool {
	return len(p.Compile) > 0
}

// SourceName is the fixed file name the submitted text is written to.
func (p Profile) SourceName() string {
	return expandName(p.Source)
}

// ArtifactName is the fixed file name of the compiled output, if any.
func (p Profile) ArtifactName() string {
	return expandName(p.Artifact)
}

// DiagnosticStream returns where compile errors are reported.
func (p Profile) DiagnosticStream() Stream {
	if p.Diagnostics == "" {
		return StreamStderr
	}
	return p.Diagnostics
}

// Vars are the values substituted into command templates.
type Vars struct {
	Source   string
	Artifact string
	Dir      string
	Self     string
}

// Expand substitutes vars into an argument template. The template is not modified.
func Expand(tmpl []string, v Vars) []string {
	r := strings.NewReplacer(
		"{source}", v.Source,
		"{artifact}", v.Artifact,
		"{dir}", v.Dir,
		"{self}", v.Self,
		"{exe}", exeSuffix(),
	)
	out := make([]string, len(tmpl))
	for i, arg := range tmpl {
		out[i] = r.Replace(arg)
	}
	return out
}

func expandName(name string) string {
	return strings.ReplaceAll(name, "{exe}", exeSuffix())
}

func exeSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}
