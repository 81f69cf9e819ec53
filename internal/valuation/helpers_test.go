package valuation

import "github.com/appleyytsai/Dashboard/internal/calculator"

type calcRow = calculator.JoinedRow

func reverse(rows []calcRow) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
