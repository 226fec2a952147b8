package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/hiero_client/internal/mirror"
	"github.com/R3E-Network/hiero_client/internal/wire"
)

type recordOutput struct {
	SequenceNumber uint64    `json:"sequence_number"`
	ConsensusTime  time.Time `json:"consensus_time"`
	Message        string    `json:"message"`
	ChunkNumber    int32     `json:"chunk_number,omitempty"`
	ChunkTotal     int32     `json:"chunk_total,omitempty"`
}

type subscribeFlags struct {
	limit     uint64
	start     string
	end       string
	queueSize int
}

func newSubscribeCommand(a *app) *cobra.Command {
	var flags subscribeFlags

	cmd := &cobra.Command{
		Use:   "subscribe <topic>",
		Short: "Stream confirmed messages of a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic, err := wire.ParseEntityID(args[0])
			if err != nil {
				return err
			}
			return a.subscribe(commandContext(cmd), cmd.OutOrStdout(), cmd.ErrOrStderr(), topic, flags)
		},
	}

	cmd.Flags().Uint64VarP(&flags.limit, "limit", "n", 0, "stop after this many messages (0 streams until interrupted)")
	cmd.Flags().StringVar(&flags.start, "start", "", "first consensus time to include (RFC 3339)")
	cmd.Flags().StringVar(&flags.end, "end", "", "consensus time to stop at (RFC 3339, exclusive)")
	cmd.Flags().IntVar(&flags.queueSize, "queue-size", 0, "consumer queue size (defaults to stream.queue_size)")
	return cmd
}

func parseTime(name, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return t, nil
}

func (a *app) subscribe(ctx context.Context, out, errOut io.Writer, topic wire.EntityID, flags subscribeFlags) error {
	start, err := parseTime("start", flags.start)
	if err != nil {
		return err
	}
	end, err := parseTime("end", flags.end)
	if err != nil {
		return err
	}
	size := flags.queueSize
	if size <= 0 {
		size = a.cfg.Stream.QueueSize
	}

	queue := mirror.NewQueue[mirror.Record](size)
	type outcome struct {
		cur mirror.Cursor
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		cur, err := mirror.FromChain(a.client).Subscribe(ctx, mirror.SubscribeParams{
			Topic:         topic,
			Start:         start,
			End:           end,
			Limit:         flags.limit,
			Queue:         queue,
			CompleteQueue: true,
			WriteRetries:  a.cfg.Stream.WriteRetries,
			RoomTimeout:   a.cfg.Stream.RoomTimeout,
		})
		done <- outcome{cur, err}
	}()

	// The queue is closed when the subscription ends, which ends this loop.
	for {
		rec, err := queue.Read(context.Background())
		if err != nil {
			break
		}
		o := recordOutput{
			SequenceNumber: rec.SequenceNumber,
			ConsensusTime:  rec.ConsensusTime.UTC(),
			Message:        string(rec.Message),
		}
		if rec.Chunk != nil {
			o.ChunkNumber, o.ChunkTotal = rec.Chunk.Number, rec.Chunk.Total
		}
		text := fmt.Sprintf("%d\t%s\t%s", o.SequenceNumber, o.ConsensusTime.Format(time.RFC3339Nano), o.Message)
		if err := a.emit(out, o, text); err != nil {
			return err
		}
	}

	res := <-done
	if res.err != nil {
		return res.err
	}
	fmt.Fprintf(errOut, "subscription %s: %d messages\n", res.cur.State, res.cur.Consumed)
	return nil
}
