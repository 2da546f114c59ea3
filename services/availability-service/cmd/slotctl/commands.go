package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/clinicbook/libs/grpcx"
	"github.com/md-rashed-zaman/clinicbook/libs/kafkax"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/api"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/engine"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/grpcserver"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var errFallback = errors.New("weekday has no configured hours; result used the fallback window")

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SLOTCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "slotctl",
		Short:         "Inspect clinic appointment availability",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Bool("json", false, "Print results as JSON")
	_ = v.BindPFlag("json", root.PersistentFlags().Lookup("json"))

	root.AddCommand(slotsCmd(v))
	root.AddCommand(checkCmd(v))
	root.AddCommand(remoteCmd(v))
	root.AddCommand(invalidateCmd(v))
	return root
}

func addSlotsFlags(cmd *cobra.Command) {
	cmd.Flags().String("date", "", "Calendar date, YYYY-MM-DD")
	cmd.Flags().Int("duration", 0, "Appointment length in minutes")
	cmd.Flags().Int("step", 0, "Distance between candidate starts in minutes (default: duration)")
	cmd.Flags().String("service", "", "Service id; its duration is used when --duration is omitted")
	_ = cmd.MarkFlagRequired("date")
}

func addCandidateFlags(cmd *cobra.Command) {
	cmd.Flags().String("date", "", "Calendar date, YYYY-MM-DD")
	cmd.Flags().String("start", "", "Candidate start, HH:MM")
	cmd.Flags().Int("duration", 0, "Appointment length in minutes")
	cmd.Flags().String("service", "", "Service id; its duration is used when --duration is omitted")
	cmd.Flags().String("ignore", "", "Current slot of the appointment being moved, HH:MM-HH:MM")
	cmd.Flags().Bool("validate", false, "Also apply operating hours and break rules")
	cmd.Flags().Bool("strict", false, "Fail when the weekday fell back to default hours")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("start")
}

func slotsRequest(cmd *cobra.Command) api.SlotsRequest {
	date, _ := cmd.Flags().GetString("date")
	duration, _ := cmd.Flags().GetInt("duration")
	step, _ := cmd.Flags().GetInt("step")
	service, _ := cmd.Flags().GetString("service")
	return api.SlotsRequest{Date: date, DurationMinutes: duration, StepMinutes: step, ServiceID: service}
}

func candidateRequest(cmd *cobra.Command) (api.CandidateRequest, error) {
	date, _ := cmd.Flags().GetString("date")
	start, _ := cmd.Flags().GetString("start")
	duration, _ := cmd.Flags().GetInt("duration")
	service, _ := cmd.Flags().GetString("service")
	ignore, _ := cmd.Flags().GetString("ignore")

	req := api.CandidateRequest{Date: date, StartTime: start, DurationMinutes: duration, ServiceID: service}
	if ignore != "" {
		from, to, ok := strings.Cut(ignore, "-")
		if !ok {
			return api.CandidateRequest{}, fmt.Errorf("--ignore must look like HH:MM-HH:MM")
		}
		req.Ignore = &api.Window{StartTime: strings.TrimSpace(from), EndTime: strings.TrimSpace(to)}
	}
	return req, nil
}

func fixtureEngine(cmd *cobra.Command) (*engine.Engine, error) {
	path, _ := cmd.Flags().GetString("fixture")
	s, err := LoadFixture(path)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	return engine.New(s, s, s, s, logger, engine.Options{}), nil
}

func slotsCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List free start times from a fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := fixtureEngine(cmd)
			if err != nil {
				return err
			}
			resp, err := api.ListSlots(cmd.Context(), eng, slotsRequest(cmd))
			if err != nil {
				return err
			}
			return printSlots(cmd.OutOrStdout(), v.GetBool("json"), resp)
		},
	}
	cmd.Flags().String("fixture", "", "Schedule fixture (YAML or JSON)")
	_ = cmd.MarkFlagRequired("fixture")
	addSlotsFlags(cmd)
	return cmd
}

func checkCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check one candidate start time against a fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := fixtureEngine(cmd)
			if err != nil {
				return err
			}
			req, err := candidateRequest(cmd)
			if err != nil {
				return err
			}
			validate, _ := cmd.Flags().GetBool("validate")
			var resp api.VerdictResponse
			if validate {
				resp, err = api.ValidateBooking(cmd.Context(), eng, req)
			} else {
				resp, err = api.CheckConflict(cmd.Context(), eng, req)
			}
			if err != nil {
				return err
			}
			return printVerdict(cmd, v.GetBool("json"), resp)
		},
	}
	cmd.Flags().String("fixture", "", "Schedule fixture (YAML or JSON)")
	_ = cmd.MarkFlagRequired("fixture")
	addCandidateFlags(cmd)
	return cmd
}

func remoteCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Query a running availability-service over gRPC",
	}
	cmd.PersistentFlags().String("addr", "localhost:9094", "availability-service gRPC address")
	cmd.PersistentFlags().Duration("timeout", 5*time.Second, "Dial and call timeout")
	_ = v.BindPFlag("addr", cmd.PersistentFlags().Lookup("addr"))
	_ = v.BindPFlag("timeout", cmd.PersistentFlags().Lookup("timeout"))

	dial := func(ctx context.Context) (*grpcserver.Client, func(), error) {
		conn, err := grpcx.Dial(ctx, v.GetString("addr"), grpcx.DialOptions{Timeout: v.GetDuration("timeout"), Block: true})
		if err != nil {
			return nil, nil, fmt.Errorf("dial %s: %w", v.GetString("addr"), err)
		}
		return grpcserver.NewClient(conn), func() { _ = conn.Close() }, nil
	}

	slots := &cobra.Command{
		Use:   "slots",
		Short: "List free start times",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), v.GetDuration("timeout"))
			defer cancel()
			client, closeConn, err := dial(ctx)
			if err != nil {
				return err
			}
			defer closeConn()
			resp, err := client.ListAvailableSlots(ctx, slotsRequest(cmd))
			if err != nil {
				return err
			}
			return printSlots(cmd.OutOrStdout(), v.GetBool("json"), resp)
		},
	}
	addSlotsFlags(slots)

	check := &cobra.Command{
		Use:   "check",
		Short: "Check one candidate start time",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := candidateRequest(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), v.GetDuration("timeout"))
			defer cancel()
			client, closeConn, err := dial(ctx)
			if err != nil {
				return err
			}
			defer closeConn()
			validate, _ := cmd.Flags().GetBool("validate")
			var resp api.VerdictResponse
			if validate {
				resp, err = client.ValidateBooking(ctx, req)
			} else {
				resp, err = client.CheckConflict(ctx, req)
			}
			if err != nil {
				return err
			}
			return printVerdict(cmd, v.GetBool("json"), resp)
		},
	}
	addCandidateFlags(check)

	cmd.AddCommand(slots, check)
	return cmd
}

func invalidateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invalidate",
		Short: "Publish a calendar-changed event so every replica drops its cached calendar",
		RunE: func(cmd *cobra.Command, args []string) error {
			brokers := v.GetString("brokers")
			if len(kafkax.SplitBrokers(brokers)) == 0 {
				return errors.New("--brokers is required")
			}
			reason, _ := cmd.Flags().GetString("reason")
			payload, err := json.Marshal(map[string]string{"reason": reason, "source": "slotctl"})
			if err != nil {
				return err
			}

			w := kafkax.NewWriter(brokers, v.GetString("topic"))
			defer w.Close()

			meta := kafkax.EventMeta{EventID: uuid.NewString(), EventType: "clinic.calendar.changed"}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			if err := w.WriteMessages(ctx, kafkax.NewEventMessage(ctx, meta, "calendar", payload)); err != nil {
				return fmt.Errorf("publish: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s\n", meta.EventID)
			return nil
		},
	}
	cmd.Flags().String("brokers", "", "Comma separated Kafka brokers")
	cmd.Flags().String("topic", "clinic.calendar.changed.v1", "Calendar change topic")
	cmd.Flags().String("reason", "manual", "Free text recorded in the event payload")
	_ = v.BindPFlag("brokers", cmd.Flags().Lookup("brokers"))
	_ = v.BindPFlag("topic", cmd.Flags().Lookup("topic"))
	return cmd
}

func printSlots(w io.Writer, asJSON bool, resp api.SlotsResponse) error {
	if asJSON {
		return json.NewEncoder(w).Encode(resp)
	}
	if resp.Fallback {
		fmt.Fprintln(w, "# fallback hours (weekday not configured)")
	}
	if len(resp.Slots) == 0 {
		fmt.Fprintln(w, "no free slots")
		return nil
	}
	for _, s := range resp.Slots {
		fmt.Fprintf(w, "%s-%s\n", s.StartTime, s.EndTime)
	}
	return nil
}

func printVerdict(cmd *cobra.Command, asJSON bool, resp api.VerdictResponse) error {
	w := cmd.OutOrStdout()
	if asJSON {
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			return err
		}
	} else if resp.Blocked {
		if resp.Reason != "" {
			fmt.Fprintf(w, "blocked by %s: %s\n", resp.Source, resp.Reason)
		} else {
			fmt.Fprintf(w, "blocked by %s\n", resp.Source)
		}
	} else {
		fmt.Fprintln(w, "free")
	}

	strict, _ := cmd.Flags().GetBool("strict")
	if strict && resp.Fallback {
		return errFallback
	}
	return nil
}
