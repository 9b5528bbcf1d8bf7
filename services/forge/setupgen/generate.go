// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

// Package setupgen implements Phase 0: deterministic, no-LLM generation of
// configuration files from ProjectSpec.Setup — package manifests,
// dependency lists, README, start scripts, env templates. Grounded on the
// reference manifest package's deterministic-record-generation idiom;
// package.json uses encoding/json, the prose files use text/template,
// matching the teacher's own template-first prompt-construction habit
// carried over to plain deterministic text generation.
package setupgen

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/codeforge-dev/codeforge/services/forge/spec"
)

// Generate produces every setup file §4.6 names, deterministically, from
// s.Setup. When s.Setup is nil, only README.md is produced (not an error).
func Generate(s *spec.ProjectSpec) ([]spec.GeneratedFile, error) {
	var out []spec.GeneratedFile
	if s.Setup == nil {
		readme, err := buildREADME(s, nil)
		if err != nil {
			return nil, err
		}
		return append(out, readme), nil
	}
	setup := s.Setup

	if len(setup.Dependencies.NPM) > 0 {
		pkg, err := buildPackageJSON(s, setup)
		if err != nil {
			return nil, fmt.Errorf("setupgen: package.json: %w", err)
		}
		out = append(out, pkg)
	}
	if len(setup.Dependencies.Python) > 0 {
		out = append(out, buildRequirementsTxt(setup))
	}
	if len(setup.Dependencies.Maven) > 0 {
		pom, err := buildPomXML(setup)
		if err != nil {
			return nil, fmt.Errorf("setupgen: pom.xml: %w", err)
		}
		out = append(out, pom)
	}
	if len(setup.Dependencies.Go) > 0 {
		gomod, err := buildGoMod(s, setup)
		if err != nil {
			return nil, fmt.Errorf("setupgen: go.mod: %w", err)
		}
		out = append(out, gomod)
	}
	if len(setup.EnvironmentVariables) > 0 {
		out = append(out, buildEnvExample(setup))
	}

	readme, err := buildREADME(s, setup)
	if err != nil {
		return nil, fmt.Errorf("setupgen: README.md: %w", err)
	}
	out = append(out, readme)

	if len(setup.StartCommands) > 0 {
		sh, bat := buildStartScripts(setup)
		out = append(out, sh, bat)
	}

	return out, nil
}

func newFile(path, content, language string) spec.GeneratedFile {
	return spec.GeneratedFile{
		Path: path, Content: content, Language: language,
		Metadata: spec.FileMetadata{Method: spec.MethodTemplate},
	}
}

// parseNPMSpec splits "name@version" into (name, version), defaulting an
// unspecified version to "latest" per §4.6.
func parseNPMSpec(entry string) (name, version string) {
	idx := strings.LastIndex(entry, "@")
	if idx <= 0 { // idx==0 would mean a scoped package with no version, e.g. "@foo/bar"
		return entry, "latest"
	}
	return entry[:idx], entry[idx+1:]
}

type packageJSON struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Private      bool              `json:"private"`
	Description  string            `json:"description,omitempty"`
	Scripts      map[string]string `json:"scripts,omitempty"`
	Dependencies map[string]string `json:"dependencies"`
}

func buildPackageJSON(s *spec.ProjectSpec, setup *spec.SetupSpec) (spec.GeneratedFile, error) {
	deps := make(map[string]string, len(setup.Dependencies.NPM))
	for _, entry := range setup.Dependencies.NPM {
		name, version := parseNPMSpec(entry)
		deps[name] = version
	}

	scripts := map[string]string{}
	if cmd, ok := setup.StartCommands["start"]; ok {
		scripts["start"] = cmd
	}
	if cmd, ok := setup.StartCommands["server"]; ok {
		scripts["server"] = cmd
	}
	if cmd, ok := setup.StartCommands["backend"]; ok {
		scripts["server"] = cmd
	}

	pkg := packageJSON{
		Name:         projectName(s),
		Version:      "0.1.0",
		Private:      true,
		Description:  s.Summary,
		Scripts:      scripts,
		Dependencies: deps,
	}
	raw, err := json.MarshalIndent(pkg, "", "  ")
	if err != nil {
		return spec.GeneratedFile{}, err
	}
	return newFile("package.json", string(raw)+"\n", "json"), nil
}

func buildRequirementsTxt(setup *spec.SetupSpec) spec.GeneratedFile {
	lines := append([]string(nil), setup.Dependencies.Python...)
	sort.Strings(lines)
	return newFile("requirements.txt", strings.Join(lines, "\n")+"\n", "text")
}

var pomTemplate = template.Must(template.New("pom").Parse(
	`<?xml version="1.0" encoding="UTF-8"?>
<project xmlns="http://maven.apache.org/POM/4.0.0">
  <modelVersion>4.0.0</modelVersion>
  <groupId>dev.codeforge.generated</groupId>
  <artifactId>generated-project</artifactId>
  <version>0.1.0</version>
  <properties>
    <maven.compiler.source>{{.JavaVersion}}</maven.compiler.source>
    <maven.compiler.target>{{.JavaVersion}}</maven.compiler.target>
  </properties>
  <dependencies>
{{- range .Deps}}
    <dependency>
      <groupId>{{.GroupID}}</groupId>
      <artifactId>{{.ArtifactID}}</artifactId>
      <version>{{.Version}}</version>
    </dependency>
{{- end}}
  </dependencies>
</project>
`))

type mavenDep struct{ GroupID, ArtifactID, Version string }

func buildPomXML(setup *spec.SetupSpec) (spec.GeneratedFile, error) {
	javaVersion := setup.JavaVersion
	if javaVersion == "" {
		javaVersion = "17"
	}
	var deps []mavenDep
	for _, entry := range setup.Dependencies.Maven {
		parts := strings.Split(entry, ":")
		d := mavenDep{Version: "latest"}
		switch len(parts) {
		case 3:
			d.GroupID, d.ArtifactID, d.Version = parts[0], parts[1], parts[2]
		case 2:
			d.GroupID, d.ArtifactID = parts[0], parts[1]
		default:
			d.GroupID, d.ArtifactID = "unknown", entry
		}
		deps = append(deps, d)
	}

	var b strings.Builder
	if err := pomTemplate.Execute(&b, struct {
		JavaVersion string
		Deps        []mavenDep
	}{javaVersion, deps}); err != nil {
		return spec.GeneratedFile{}, err
	}
	return newFile("pom.xml", b.String(), "xml"), nil
}

var goModTemplate = template.Must(template.New("gomod").Parse(
	`module {{.Module}}

go 1.22
{{if .Deps}}
require (
{{- range .Deps}}
	{{.}}
{{- end}}
)
{{end}}`))

func buildGoMod(s *spec.ProjectSpec, setup *spec.SetupSpec) (spec.GeneratedFile, error) {
	var b strings.Builder
	err := goModTemplate.Execute(&b, struct {
		Module string
		Deps   []string
	}{Module: "github.com/codeforge-dev/generated/" + slugify(projectName(s)), Deps: setup.Dependencies.Go})
	if err != nil {
		return spec.GeneratedFile{}, err
	}
	return newFile("go.mod", b.String(), "go"), nil
}

func buildEnvExample(setup *spec.SetupSpec) spec.GeneratedFile {
	keys := make([]string, 0, len(setup.EnvironmentVariables))
	for k := range setup.EnvironmentVariables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, setup.EnvironmentVariables[k])
	}
	return newFile(".env.example", b.String(), "env")
}

var readmeTemplate = template.Must(template.New("readme").Parse(
	`# {{.Name}}

{{.Summary}}

## Dependencies
{{if .HasDeps}}
{{- if .NPM}}
- npm: {{join .NPM}}
{{- end}}
{{- if .Python}}
- python: {{join .Python}}
{{- end}}
{{- if .Maven}}
- maven: {{join .Maven}}
{{- end}}
{{- if .Go}}
- go: {{join .Go}}
{{- end}}
{{else}}
(none declared)
{{end}}
## Environment variables
{{if .EnvKeys}}
{{- range .EnvKeys}}
- {{.}}
{{- end}}
{{else}}
(none declared)
{{end}}
## Running

{{if .StartCommands}}
{{- range $name, $cmd := .StartCommands}}
- {{$name}}: ` + "`{{$cmd}}`" + `
{{- end}}
{{else}}
No start commands were declared for this project.
{{end}}
`))

func buildREADME(s *spec.ProjectSpec, setup *spec.SetupSpec) (spec.GeneratedFile, error) {
	data := struct {
		Name           string
		Summary        string
		HasDeps        bool
		NPM, Python, Maven, Go []string
		EnvKeys        []string
		StartCommands  map[string]string
	}{
		Name:    projectName(s),
		Summary: s.Summary,
	}
	if setup != nil {
		data.NPM, data.Python, data.Maven, data.Go = setup.Dependencies.NPM, setup.Dependencies.Python, setup.Dependencies.Maven, setup.Dependencies.Go
		data.HasDeps = len(data.NPM)+len(data.Python)+len(data.Maven)+len(data.Go) > 0
		for k := range setup.EnvironmentVariables {
			data.EnvKeys = append(data.EnvKeys, k)
		}
		sort.Strings(data.EnvKeys)
		data.StartCommands = setup.StartCommands
	}

	tmpl := readmeTemplate.Funcs(template.FuncMap{"join": func(s []string) string { return strings.Join(s, ", ") }})
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return spec.GeneratedFile{}, err
	}
	return newFile("README.md", b.String(), "md"), nil
}

func buildStartScripts(setup *spec.SetupSpec) (sh, bat spec.GeneratedFile) {
	names := make([]string, 0, len(setup.StartCommands))
	for name := range setup.StartCommands {
		names = append(names, name)
	}
	sort.Strings(names)

	var shBody, batBody strings.Builder
	shBody.WriteString("#!/usr/bin/env sh\nset -e\n")
	batBody.WriteString("@echo off\r\n")
	for _, name := range names {
		cmd := setup.StartCommands[name]
		fmt.Fprintf(&shBody, "# %s\n%s &\n", name, cmd)
		fmt.Fprintf(&batBody, "rem %s\r\nstart \"\" %s\r\n", name, cmd)
	}
	return newFile("start.sh", shBody.String(), "shell"), newFile("start.bat", batBody.String(), "batch")
}

func projectName(s *spec.ProjectSpec) string {
	if s.Summary == "" {
		return "generated-project"
	}
	return slugify(s.Summary)
}

func slugify(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if len(out) > 40 {
		out = out[:40]
	}
	if out == "" {
		out = "generated-project"
	}
	return out
}
