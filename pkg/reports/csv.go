// Package reports renders financial exports.
package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/Ramsey-B/advwell/pkg/models"
)

// brasilia has had no daylight saving time since 2019
var brasilia = time.FixedZone("BRT", -3*60*60)

var transactionHeader = []string{"Data", "Tipo", "Cliente", "CPF", "Descrição", "Processo", "Valor"}

// utf8BOM makes spreadsheet apps read the file as UTF-8
const utf8BOM = "\ufeff"

// TransactionsFilename is the attachment name of the CSV export
const TransactionsFilename = "relatorio_financeiro.csv"

// WriteTransactionsCSV writes rows as a comma separated report, one line per
// transaction, with dates in dd/mm/yyyy and amounts with two decimals.
func WriteTransactionsCSV(w io.Writer, rows []models.FinancialExportRow) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(transactionHeader); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.Date.In(brasilia).Format("02/01/2006"),
			transactionLabel(row.Type),
			row.ClientName,
			deref(row.ClientCPF),
			row.Description,
			deref(row.ProcessNumber),
			strconv.FormatFloat(row.Amount, 'f', 2, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write transaction row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func transactionLabel(t models.TransactionType) string {
	if t == models.TransactionIncome {
		return "Receita"
	}
	return "Despesa"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
