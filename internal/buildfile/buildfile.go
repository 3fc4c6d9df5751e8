// Package buildfile loads a YAML target-graph definition and installs
// it into a target.Registry via internal/graph's Admission, as a
// convenience alternative to registering targets directly through Go
// closures. Each target's body is a shell command, run through
// os/exec with the declared environment as an allowlist.
package buildfile

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"gopkg.in/yaml.v3"

	"weave/internal/graph"
	"weave/internal/target"
	"weave/internal/tracelog"
)

// TargetDef is one YAML-declared target.
type TargetDef struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	Run         string            `yaml:"run,omitempty"`
	Dir         string            `yaml:"dir,omitempty"`
	Env         map[string]string `yaml:"env,omitempty"`
	HardDeps    []string          `yaml:"hardDependsOn,omitempty"`
	SoftDeps    []string          `yaml:"softDependsOn,omitempty"`
	Final       bool              `yaml:"final,omitempty"`
	BuildFailure bool             `yaml:"buildFailure,omitempty"`
	Activated   bool              `yaml:"activated,omitempty"`
}

// File is the top-level shape of a build file.
type File struct {
	DefaultTarget string      `yaml:"defaultTarget,omitempty"`
	Targets       []TargetDef `yaml:"targets"`
}

// Load reads and parses the build file at path, then installs every
// target into registry (rejecting duplicate names, exactly like
// Registry.CreateTarget) and wires hard/soft dependencies through adm.
// Unknown YAML fields are rejected to avoid silent divergence between
// the file and what actually gets registered, matching the teacher's
// JSON-loader discipline.
func Load(path string, registry *target.Registry, adm *graph.Admission, sink tracelog.Sink) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read build file: %w", err)
	}

	var bf File
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&bf); err != nil {
		return nil, fmt.Errorf("parse build file: %w", err)
	}
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("parse build file: trailing document")
		}
	}

	if len(bf.Targets) == 0 {
		return nil, fmt.Errorf("parse build file: no targets")
	}

	for _, td := range bf.Targets {
		body := shellBody(td, sink)

		var err error
		switch {
		case td.Final:
			_, err = registry.RegisterFinal(td.Name, body)
		case td.BuildFailure:
			_, err = registry.RegisterBuildFailure(td.Name, body)
		default:
			_, err = registry.CreateTarget(td.Name, body)
		}
		if err != nil {
			return nil, fmt.Errorf("register target %q: %w", td.Name, err)
		}

		if td.Description != "" {
			t, _ := registry.GetTarget(td.Name)
			t.Description = td.Description
		}
		if td.Activated {
			if td.Final {
				_ = registry.ActivateFinal(td.Name)
			} else if td.BuildFailure {
				_ = registry.ActivateBuildFailure(td.Name)
			}
		}
	}

	for _, td := range bf.Targets {
		if err := adm.AddHardDependencies(td.Name, td.HardDeps); err != nil {
			return nil, fmt.Errorf("hard dependencies of %q: %w", td.Name, err)
		}
		if err := adm.AddSoftDependencies(td.Name, td.SoftDeps); err != nil {
			return nil, fmt.Errorf("soft dependencies of %q: %w", td.Name, err)
		}
	}

	if bf.DefaultTarget != "" {
		registry.SetDefaultTarget(bf.DefaultTarget)
	}

	return &bf, nil
}

// shellBody builds a target.Body that runs td.Run through "sh -c" in
// td.Dir, with an environment built strictly from td.Env (no host
// environment passthrough), mirroring the teacher's allowlist-only
// execution discipline.
func shellBody(td TargetDef, sink tracelog.Sink) target.Body {
	if td.Run == "" {
		return func() error { return nil }
	}
	return func() error {
		cmd := exec.Command("sh", "-c", td.Run)
		cmd.Dir = td.Dir
		cmd.Env = buildEnv(td.Env)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

		if err := cmd.Start(); err != nil {
			return fmt.Errorf("start %q: %w", td.Name, err)
		}
		if cs, ok := sink.(interface {
			TrackProcess(*exec.Cmd)
		}); ok {
			cs.TrackProcess(cmd)
		}
		if err := cmd.Wait(); err != nil {
			return fmt.Errorf("run %q: %w", td.Name, err)
		}
		return nil
	}
}

func buildEnv(env map[string]string) []string {
	if len(env) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}
