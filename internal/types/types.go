// README: Shared value types used across modules.
package types

type ID string

type Money struct {
	Amount   int64
	Currency string
}

func (m Money) Times(n int) Money {
	return Money{Amount: m.Amount * int64(n), Currency: m.Currency}
}
