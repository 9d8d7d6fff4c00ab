package adapter

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"gooze.dev/pkg/testbench/internal/loader"
	m "gooze.dev/pkg/testbench/internal/model"
)

const accountUnit = `name: app.Account
fields:
  balance: 0
constructors:
  - init:
      balance: "0"
  - params:
      - {name: initial, type: int}
    init:
      balance: initial
methods:
  - name: deposit
    params:
      - {name: amount, type: int}
    body: 'amount < 0 ? fail("app.InvalidAmount", "negative deposit") : balance + amount'
    assign: balance
    mutants:
      - 'balance - amount'
      - 'amount + balance'
  - name: withdraw
    params:
      - {name: amount, type: int}
    body: 'amount > balance ? fail("app.Overdraft", "insufficient funds") : balance - amount'
    assign: balance
    mutants:
      - 'amount >= balance ? fail("app.Overdraft", "insufficient funds") : balance - amount'
  - name: close
    body: 'balance'
    mutants:
      - '0'
  - name: countdown
    params:
      - {name: n, type: int}
    body: 'n <= 0 ? 0 : call("countdown", n - 1)'
  - name: spin
    body: 'call("spin")'
`

func accountFS(t *testing.T) afero.Fs {
	t.Helper()

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/units/app.Account.yaml", []byte(accountUnit), 0o644))

	return fsys
}

func accountLoader(t *testing.T) *loader.Context {
	t.Helper()

	return loader.New(NewFSCodeSource(accountFS(t), "/units"), loader.WithHost(NewBuiltinHostRegistry()))
}

func depositWithdrawProgram() *m.Program {
	return &m.Program{
		Name: "deposit-withdraw",
		Steps: []m.Step{
			{Unit: "app.Account", Construct: true, Params: []string{"int"}, Args: []any{10}},
			{Unit: "app.Account", Invoke: "deposit", Args: []any{5}},
			{Unit: "app.Account", Invoke: "withdraw", Args: []any{15}},
			{Unit: "app.Account", Field: "balance"},
		},
	}
}
