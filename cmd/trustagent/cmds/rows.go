package cmds

import (
	"context"
	"strings"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/trustagent/pkg/chat"
	"github.com/go-go-golems/trustagent/pkg/inference/tools"
	"github.com/go-go-golems/trustagent/pkg/mcp"
	"github.com/go-go-golems/trustagent/pkg/sessions"
)

func buildGlazeCommand(c cmds.GlazeCommand) *cobra.Command {
	cobraCmd, err := cli.BuildCobraCommandFromGlazeCommand(c)
	cobra.CheckErr(err)
	return cobraCmd
}

func addRows(ctx context.Context, gp middlewares.Processor, rows []types.Row) error {
	for _, row := range rows {
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

func serverRows(infos []mcp.ServerInfo) []types.Row {
	ret := make([]types.Row, 0, len(infos))
	for _, i := range infos {
		ret = append(ret, types.NewRow(
			types.MRP("name", i.Name),
			types.MRP("status", string(i.Status)),
			types.MRP("tools", i.Tools),
			types.MRP("command", i.Command),
			types.MRP("error", i.LastError),
		))
	}
	return ret
}

func descriptorRows(ds []tools.ToolDescriptor) []types.Row {
	ret := make([]types.Row, 0, len(ds))
	for _, d := range ds {
		ret = append(ret, types.NewRow(
			types.MRP("server", d.BackendName),
			types.MRP("tool", d.ToolName),
			types.MRP("description", firstLine(d.Description)),
		))
	}
	return ret
}

func toolStateRows(states []chat.ToolState) []types.Row {
	ret := make([]types.Row, 0, len(states))
	for _, s := range states {
		ret = append(ret, types.NewRow(
			types.MRP("tool", s.Descriptor.Key()),
			types.MRP("enabled", s.Enabled),
			types.MRP("description", firstLine(s.Descriptor.Description)),
		))
	}
	return ret
}

func sessionRows(list []*sessions.Session) []types.Row {
	ret := make([]types.Row, 0, len(list))
	for _, s := range list {
		ret = append(ret, types.NewRow(
			types.MRP("id", s.ID),
			types.MRP("title", s.Title),
			types.MRP("messages", len(s.Messages)),
			types.MRP("created_at", s.CreatedAt),
			types.MRP("updated_at", s.UpdatedAt),
		))
	}
	return ret
}

func messageRows(s *sessions.Session) []types.Row {
	ret := make([]types.Row, 0, len(s.Messages))
	for i, m := range s.Messages {
		ret = append(ret, types.NewRow(
			types.MRP("seq", i),
			types.MRP("role", string(m.Role)),
			types.MRP("timestamp", m.Timestamp),
			types.MRP("content", strings.TrimSpace(m.Content)),
		))
	}
	return ret
}

func searchResultRows(results []sessions.SearchResult) []types.Row {
	ret := make([]types.Row, 0, len(results))
	for _, r := range results {
		ret = append(ret, types.NewRow(
			types.MRP("id", r.SessionID),
			types.MRP("title", r.Title),
			types.MRP("matches", r.Matches),
		))
	}
	return ret
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
