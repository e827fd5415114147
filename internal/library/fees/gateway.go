package fees

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
)

// PaymentGateway は外部決済サービスとの接点。テストではモックに差し替える
type PaymentGateway interface {
	ProcessPayment(ctx context.Context, patronID string, amount float64, description string) (transactionID string, err error)
	RefundPayment(ctx context.Context, transactionID string, amount float64) error
}

// SimulatedGateway は決済プロバイダ未接続の環境向けの実装。
// 常に成功し、トランザクションIDだけ払い出す
type SimulatedGateway struct{}

func NewSimulatedGateway() *SimulatedGateway { return &SimulatedGateway{} }

func (g *SimulatedGateway) ProcessPayment(ctx context.Context, patronID string, amount float64, description string) (string, error) {
	if amount <= 0 {
		return "", errors.New("amount must be positive")
	}
	txn := "txn_" + uuid.NewString()
	log.Printf("[INFO] simulated payment: patron=%s amount=%.2f txn=%s (%s)", patronID, amount, txn, description)
	return txn, nil
}

func (g *SimulatedGateway) RefundPayment(ctx context.Context, transactionID string, amount float64) error {
	if transactionID == "" {
		return errors.New("transaction id required")
	}
	log.Printf("[INFO] simulated refund: txn=%s amount=%.2f", transactionID, amount)
	return nil
}

var _ PaymentGateway = (*SimulatedGateway)(nil)

// GatewayError は決済側の失敗をHTTP 502相当として区別するためのラッパ
type GatewayError struct{ Err error }

func (e *GatewayError) Error() string { return fmt.Sprintf("payment gateway: %v", e.Err) }
func (e *GatewayError) Unwrap() error { return e.Err }
