package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/hiero_client/internal/chain"
	"github.com/R3E-Network/hiero_client/internal/operations"
	"github.com/R3E-Network/hiero_client/internal/wire"
)

type messageResult struct {
	TransactionID  string `json:"transaction_id"`
	Status         string `json:"status"`
	SequenceNumber uint64 `json:"sequence_number,omitempty"`
	Segments       int    `json:"segments"`
	ScheduleID     string `json:"schedule_id,omitempty"`
}

func newSubmitMessageCommand(a *app) *cobra.Command {
	var (
		message     string
		file        string
		segmentSize int
		schedule    bool
	)

	cmd := &cobra.Command{
		Use:   "submit-message <topic>",
		Short: "Submit a message to a topic, splitting it into segments when needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic, err := wire.ParseEntityID(args[0])
			if err != nil {
				return err
			}
			payload, err := readPayload(message, file)
			if err != nil {
				return err
			}
			return a.submitMessage(commandContext(cmd), cmd.OutOrStdout(), cmd.ErrOrStderr(), topic, payload, segmentSize, schedule)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "message text")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the message from a file")
	cmd.Flags().IntVar(&segmentSize, "segment-size", operations.DefaultSegmentSize, "bytes per segment")
	cmd.Flags().BoolVar(&schedule, "schedule", false, "submit as a scheduled transaction")
	return cmd
}

func readPayload(message, file string) ([]byte, error) {
	switch {
	case message != "" && file != "":
		return nil, errors.New("use either --message or --file")
	case file != "":
		return os.ReadFile(file)
	case message != "":
		return []byte(message), nil
	default:
		return nil, errors.New("one of --message or --file is required")
	}
}

func (a *app) submitMessage(ctx context.Context, out, errOut io.Writer, topic wire.EntityID, payload []byte, segmentSize int, schedule bool) error {
	if segmentSize <= 0 {
		segmentSize = operations.DefaultSegmentSize
	}
	var opts []chain.ExecOption
	if schedule {
		opts = append(opts, chain.SignedBy(chain.Pending(chain.PendingParams{Memo: "ledgerctl"})))
	}

	if len(payload) <= segmentSize {
		r, err := chain.Execute[operations.MessageReceipt](ctx, a.client, &operations.SubmitMessage{Topic: topic, Message: payload}, opts...)
		if err != nil {
			return err
		}
		res := messageResult{
			TransactionID:  r.TransactionID.String(),
			Status:         r.Status.String(),
			SequenceNumber: r.SequenceNumber,
			Segments:       1,
		}
		if r.Pending != nil {
			res.ScheduleID = r.Pending.ScheduleID.String()
		}
		return a.emit(out, res, fmt.Sprintf("%s %s sequence=%d", res.TransactionID, res.Status, res.SequenceNumber))
	}

	total := (len(payload) + segmentSize - 1) / segmentSize
	bar := NewProgressBar(errOut, total, "segments")
	opts = append(opts, chain.OnSegment(func(index, _ int, _ wire.TransactionID) { bar.Set(index) }))

	result, err := operations.SubmitLargeMessage(ctx, a.client, topic, payload, segmentSize, nil, opts...)
	bar.Finish()
	if err != nil {
		if result != nil {
			Failure(errOut, fmt.Sprintf("stopped after %d of %d segments; correlation id %s", result.Completed(), result.Total, result.Correlation))
		}
		return err
	}

	last := result.Receipts[len(result.Receipts)-1]
	res := messageResult{
		TransactionID:  result.Correlation.String(),
		Status:         last.Status.String(),
		SequenceNumber: last.SequenceNumber,
		Segments:       result.Total,
	}
	return a.emit(out, res, fmt.Sprintf("%s %s segments=%d", res.TransactionID, res.Status, res.Segments))
}

// =============================================================================
// transfer
// =============================================================================

type transferResult struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	From          string `json:"from"`
	To            string `json:"to"`
	Amount        int64  `json:"amount"`
}

func newTransferCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "transfer <to> <amount>",
		Short: "Transfer value from the payer account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := wire.ParseEntityID(args[0])
			if err != nil {
				return err
			}
			amount, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || amount <= 0 {
				return fmt.Errorf("amount must be a positive integer, got %q", args[1])
			}
			return a.transfer(commandContext(cmd), cmd.OutOrStdout(), to, amount)
		},
	}
}

func (a *app) transfer(ctx context.Context, out io.Writer, to wire.EntityID, amount int64) error {
	from, err := a.client.Context().Payer()
	if err != nil {
		return err
	}
	r, err := chain.Execute[operations.TransferReceipt](ctx, a.client, operations.NewTransfer().Add(from, -amount).Add(to, amount))
	if err != nil {
		return err
	}
	res := transferResult{
		TransactionID: r.TransactionID.String(),
		Status:        r.Status.String(),
		From:          from.String(),
		To:            to.String(),
		Amount:        amount,
	}
	return a.emit(out, res, fmt.Sprintf("%s %s %s -> %s %d", res.TransactionID, res.Status, res.From, res.To, res.Amount))
}

// =============================================================================
// receipt
// =============================================================================

type receiptResult struct {
	TransactionID  string `json:"transaction_id"`
	Status         string `json:"status"`
	AccountID      string `json:"account_id,omitempty"`
	TopicID        string `json:"topic_id,omitempty"`
	ScheduleID     string `json:"schedule_id,omitempty"`
	SequenceNumber uint64 `json:"sequence_number,omitempty"`
}

func newReceiptCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "receipt <transaction-id>",
		Short: "Look up the receipt of a transaction once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := wire.ParseTransactionID(args[0])
			if err != nil {
				return err
			}
			return a.receipt(commandContext(cmd), cmd.OutOrStdout(), id)
		},
	}
}

func (a *app) receipt(ctx context.Context, out io.Writer, id wire.TransactionID) error {
	r, err := chain.GetReceipt(ctx, a.client, id)
	if err != nil {
		return err
	}
	res := receiptResult{
		TransactionID:  id.String(),
		Status:         r.Status.String(),
		SequenceNumber: r.TopicSequenceNumber,
	}
	if r.AccountID != nil {
		res.AccountID = r.AccountID.String()
	}
	if r.TopicID != nil {
		res.TopicID = r.TopicID.String()
	}
	if r.ScheduleID != nil {
		res.ScheduleID = r.ScheduleID.String()
	}
	return a.emit(out, res, fmt.Sprintf("%s %s", res.TransactionID, res.Status))
}
