package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-mohitbeniwal/permcheck/model"
)

const policyXML = `<Policys>
  <Module>
    <Name>account</Name>
    <Controller1>
      <Rule>
        <Role>ADMIN</Role>
        <Action>GET</Action>
        <Resource>account</Resource>
      </Rule>
    </Controller1>
  </Module>
</Policys>`

const policyWithExtraRule = `<Policys>
  <Module>
    <Name>account</Name>
    <Controller1>
      <Rule>
        <Role>ADMIN</Role>
        <Action>GET</Action>
        <Resource>account</Resource>
      </Rule>
      <Rule>
        <Role>ADMIN</Role>
        <Action>DELETE</Action>
        <Resource>account</Resource>
      </Rule>
    </Controller1>
  </Module>
</Policys>`

var projectFiles = map[string]string{
	"src/account/account.controller.ts": `import { Controller, Get } from '@nestjs/common';
import { AccountService } from './account.service';

@Controller('accounts')
export class AccountController {
  constructor(private readonly accountService: AccountService) {}

  @Get()
  @Roles('ADMIN')
  findAll() {
    return this.accountService.findAll();
  }
}
`,
	"src/account/account.service.ts": `export class AccountService {
  findAll() {}
}
`,
}

func writeInputs(t *testing.T, policy string) (policyPath, projectPath string) {
	t.Helper()
	dir := t.TempDir()

	policyPath = filepath.Join(dir, "rules.xml")
	require.NoError(t, os.WriteFile(policyPath, []byte(policy), 0o644))

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range projectFiles {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	projectPath = filepath.Join(dir, "app.zip")
	require.NoError(t, os.WriteFile(projectPath, buf.Bytes(), 0o644))
	return policyPath, projectPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseCommand(t *testing.T) {
	policyPath, _ := writeInputs(t, policyXML)

	out, err := run(t, "parse", "--policy", policyPath, "--format", "json")
	require.NoError(t, err)

	var got struct {
		Rules []model.PolicyRule `json:"rules"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []model.PolicyRule{{Role: "ADMIN", Action: "GET", Resource: "account"}}, got.Rules)

	out, err = run(t, "parse", "--policy", policyPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Declared rules")
	assert.Contains(t, out, "ADMIN")
}

func TestCheckCommand_Agreement(t *testing.T) {
	policyPath, projectPath := writeInputs(t, policyXML)

	out, err := run(t, "check", "--policy", policyPath, "--project", projectPath,
		"--oracle", "static", "--work-dir", t.TempDir(), "--format", "json", "--fail-on-diff")
	require.NoError(t, err)

	var report model.CheckReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Empty(t, report.RedundantRule)
	assert.Empty(t, report.LackRule)
	assert.Equal(t, 1, report.Stats.ControllerFiles)

	out, err = run(t, "check", "--policy", policyPath, "--project", projectPath,
		"--oracle", "static", "--work-dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "policy and implementation agree")
}

func TestCheckCommand_FailOnDiff(t *testing.T) {
	policyPath, projectPath := writeInputs(t, policyWithExtraRule)

	out, err := run(t, "check", "--policy", policyPath, "--project", projectPath,
		"--oracle", "static", "--work-dir", t.TempDir(), "--format", "yaml", "--fail-on-diff")
	assert.ErrorIs(t, err, errDiffFound)
	assert.Contains(t, out, "lackRule:")
	assert.Contains(t, out, "action: DELETE")

	_, err = run(t, "check", "--policy", policyPath, "--project", projectPath,
		"--oracle", "static", "--work-dir", t.TempDir())
	assert.NoError(t, err)
}

func TestCheckCommand_MissingFlags(t *testing.T) {
	_, err := run(t, "check", "--policy", "rules.xml")
	assert.Error(t, err)
}

func TestCheckCommand_UnknownFormat(t *testing.T) {
	policyPath, projectPath := writeInputs(t, policyXML)
	_, err := run(t, "check", "--policy", policyPath, "--project", projectPath,
		"--oracle", "static", "--work-dir", t.TempDir(), "--format", "xml")
	assert.Error(t, err)
}
