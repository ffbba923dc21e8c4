package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"os"
	"strconv"

	"github.com/glowkit/glow-go/pkg/log"
)

// RunExport exports the capture file to the specified format.
func RunExport(path, format, output string) error {
	events, closeFn, err := openEvents(path, log.Filter{})
	if err != nil {
		return err
	}
	defer closeFn()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "jsonl":
		return exportJSONL(events, w)
	case "csv":
		return exportCSV(events, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportJSONL(events iter.Seq2[log.Event, error], w io.Writer) error {
	encoder := json.NewEncoder(w)
	for event, err := range events {
		if err != nil {
			return err
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

func exportCSV(events iter.Seq2[log.Event, error], w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "observer_id", "direction", "layer", "category", "protocol", "type", "entity_id", "detail"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for event, err := range events {
		if err != nil {
			return err
		}

		eventType, entity, detail := describeEvent(event)
		protocol := ""
		if event.Protocol != 0 {
			protocol = strconv.Itoa(int(event.Protocol))
		}

		row := []string{
			event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
			event.ObserverID,
			event.Direction.String(),
			event.Layer.String(),
			event.Category.String(),
			protocol,
			eventType,
			entity,
			detail,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}

// describeEvent returns the CSV type, entity and detail columns.
func describeEvent(event log.Event) (eventType, entity, detail string) {
	switch {
	case event.Frame != nil:
		return "frame", "", fmt.Sprintf("0x%02x", event.Frame.PacketID)
	case event.Rewrite != nil:
		eventType = "rewrite"
		if event.Rewrite.Forced {
			eventType = "forced"
		}
		return eventType, strconv.Itoa(int(event.Rewrite.EntityID)),
			fmt.Sprintf("0x%02x->0x%02x", event.Rewrite.Natural, event.Rewrite.Sent)
	case event.Team != nil:
		return "team", "", event.Team.Action.String()
	case event.StateChange != nil:
		return "state", "", event.StateChange.NewState
	case event.Error != nil:
		return "error", "", event.Error.Message
	default:
		return "unknown", "", ""
	}
}
