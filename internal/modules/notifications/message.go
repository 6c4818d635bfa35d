// Package notifications turns user-facing events into messages, keeps them in
// a durable outbox and delivers them to a sink outside the request path.
package notifications

import (
	"fmt"
	"time"

	"github.com/flexinvest/platform/internal/domain"
	"github.com/flexinvest/platform/internal/events"
)

// Message is one notification addressed to a user
type Message struct {
	ID        string            `json:"id" msgpack:"id"`
	UserID    string            `json:"user_id" msgpack:"user_id"`
	Kind      string            `json:"kind" msgpack:"kind"`
	Subject   string            `json:"subject" msgpack:"subject"`
	Body      string            `json:"body" msgpack:"body"`
	Fields    map[string]string `json:"fields,omitempty" msgpack:"fields,omitempty"`
	CreatedAt time.Time         `json:"created_at" msgpack:"created_at"`
}

// UserFacingEvents are the event types that produce a message
var UserFacingEvents = []events.EventType{
	events.InvestmentCreated,
	events.InvestmentCompleted,
	events.DepositCreated,
	events.DepositDecided,
	events.WithdrawalCreated,
	events.WithdrawalDecided,
	events.WalletCredited,
	events.ComplaintCreated,
	events.ComplaintUpdated,
}

// MessageFromEvent maps an event to a message.
// Returns false for event types that are not addressed to a user.
func MessageFromEvent(event *events.Event) (*Message, bool) {
	msg := &Message{
		Kind:      string(event.Type),
		CreatedAt: event.Timestamp,
	}

	switch d := event.GetTypedData().(type) {
	case *events.InvestmentCreatedData:
		msg.UserID = d.UserID
		msg.Subject = "Investment started"
		msg.Body = fmt.Sprintf("Your %s investment of %s is now active. You will earn %s daily for %d days.",
			d.PackageName, domain.FormatMoney(d.Capital), domain.FormatMoney(d.DailyProfit), d.Duration)
		msg.Fields = map[string]string{
			"investment_id": d.InvestmentID,
			"package":       d.PackageName,
			"capital":       domain.FormatMoney(d.Capital),
			"total_return":  domain.FormatMoney(d.TotalReturn),
		}

	case *events.InvestmentCompletedData:
		msg.UserID = d.UserID
		msg.Subject = "Investment completed"
		msg.Body = fmt.Sprintf("Your %s investment has matured after %d days. %s has been credited to your wallet.",
			d.PackageName, d.Duration, domain.FormatMoney(d.Settlement))
		msg.Fields = map[string]string{
			"investment_id": d.InvestmentID,
			"package":       d.PackageName,
			"capital":       domain.FormatMoney(d.Capital),
			"profit_earned": domain.FormatMoney(d.ProfitEarned),
			"total_return":  domain.FormatMoney(d.TotalReturn),
		}

	case *events.DepositCreatedData:
		msg.UserID = d.UserID
		msg.Subject = "Deposit request received"
		msg.Body = fmt.Sprintf("We received your deposit request of %s. Your wallet will be credited once the payment is confirmed.",
			domain.FormatMoney(d.Amount))
		msg.Fields = map[string]string{"deposit_id": d.DepositID, "amount": domain.FormatMoney(d.Amount)}

	case *events.DepositDecidedData:
		msg.UserID = d.UserID
		if d.Status == string(domain.RequestApproved) {
			msg.Subject = "Deposit approved"
			msg.Body = fmt.Sprintf("Your deposit of %s has been approved and credited to your wallet.", domain.FormatMoney(d.Amount))
		} else {
			msg.Subject = "Deposit rejected"
			msg.Body = withNote(fmt.Sprintf("Your deposit of %s was not approved.", domain.FormatMoney(d.Amount)), d.Note)
		}
		msg.Fields = map[string]string{"deposit_id": d.DepositID, "amount": domain.FormatMoney(d.Amount), "status": d.Status}

	case *events.WithdrawalCreatedData:
		msg.UserID = d.UserID
		msg.Subject = "Withdrawal request received"
		msg.Body = fmt.Sprintf("We received your withdrawal request of %s. It will be paid to your bank account once approved.",
			domain.FormatMoney(d.Amount))
		msg.Fields = map[string]string{"withdrawal_id": d.WithdrawalID, "amount": domain.FormatMoney(d.Amount)}

	case *events.WithdrawalDecidedData:
		msg.UserID = d.UserID
		if d.Status == string(domain.RequestApproved) {
			msg.Subject = "Withdrawal approved"
			msg.Body = fmt.Sprintf("Your withdrawal of %s has been approved and sent to your bank account.", domain.FormatMoney(d.Amount))
		} else {
			msg.Subject = "Withdrawal rejected"
			msg.Body = withNote(fmt.Sprintf("Your withdrawal of %s was not approved.", domain.FormatMoney(d.Amount)), d.Note)
		}
		msg.Fields = map[string]string{"withdrawal_id": d.WithdrawalID, "amount": domain.FormatMoney(d.Amount), "status": d.Status}

	case *events.WalletCreditedData:
		msg.UserID = d.UserID
		msg.Subject = "Wallet credited"
		msg.Body = withNote(fmt.Sprintf("%s has been added to your wallet. New balance: %s.",
			domain.FormatMoney(d.Amount), domain.FormatMoney(d.BalanceAfter)), d.Note)
		msg.Fields = map[string]string{"amount": domain.FormatMoney(d.Amount), "balance": domain.FormatMoney(d.BalanceAfter)}

	case *events.ComplaintCreatedData:
		msg.UserID = d.UserID
		msg.Subject = "We received your complaint"
		msg.Body = fmt.Sprintf("Your complaint %q has been logged. Our support team will respond shortly.", d.Subject)
		msg.Fields = map[string]string{"complaint_id": d.ComplaintID}

	case *events.ComplaintUpdatedData:
		msg.UserID = d.UserID
		msg.Subject = "Update on your complaint"
		msg.Body = fmt.Sprintf("Your complaint %q is now %s.", d.Subject, d.Status)
		if d.Response != "" {
			msg.Body += " Response: " + d.Response
		}
		msg.Fields = map[string]string{"complaint_id": d.ComplaintID, "status": d.Status}

	default:
		return nil, false
	}

	if msg.UserID == "" {
		return nil, false
	}
	return msg, true
}

func withNote(body, note string) string {
	if note == "" {
		return body
	}
	return body + " Note: " + note
}
