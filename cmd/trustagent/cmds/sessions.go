package cmds

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/trustagent/pkg/conversation"
	"github.com/go-go-golems/trustagent/pkg/sessions"
)

func withSessionStore(f func(store *sessions.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := sessions.Open(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()
	return f(store)
}

func NewSessionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage stored chat sessions",
	}

	rename := &cobra.Command{
		Use:   "rename <id> <title...>",
		Short: "Rename a session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSessionStore(func(store *sessions.Store) error {
				return store.Rename(cmd.Context(), args[0], strings.Join(args[1:], " "))
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete sessions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSessionStore(func(store *sessions.Store) error {
				yes, _ := cmd.Flags().GetBool("yes")
				for _, id := range args {
					s, err := store.Get(cmd.Context(), id)
					if err != nil {
						return err
					}
					if !yes {
						ok, err := confirm(cmd, fmt.Sprintf("Delete %q (%d messages)? [y/n]", s.Title, len(s.Messages)))
						if err != nil {
							return err
						}
						if !ok {
							continue
						}
					}
					if err := store.Delete(cmd.Context(), id); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	del.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Create a session from a YAML or JSON list of {role, content} messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			turns, err := conversation.LoadFromFile(args[0])
			if err != nil {
				return err
			}
			return withSessionStore(func(store *sessions.Store) error {
				s := sessions.New()
				for _, t := range turns {
					s.Append(t.Role, t.Content)
				}
				s.Title = sessions.GenerateTitle(s.Messages)
				if title, _ := cmd.Flags().GetString("title"); title != "" {
					s.Title = title
				}
				if err := store.Save(cmd.Context(), s); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), s.ID)
				return err
			})
		},
	}
	importCmd.Flags().String("title", "", "Session title (default derived from the first user message)")

	listCmd, err := NewSessionsListCommand()
	cobra.CheckErr(err)
	showCmd, err := NewSessionShowCommand()
	cobra.CheckErr(err)
	searchCmd, err := NewSessionsSearchCommand()
	cobra.CheckErr(err)

	cmd.AddCommand(
		buildGlazeCommand(listCmd),
		buildGlazeCommand(showCmd),
		rename,
		del,
		buildGlazeCommand(searchCmd),
		importCmd,
	)
	return cmd
}

type SessionsListCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = (*SessionsListCommand)(nil)

func NewSessionsListCommand() (*SessionsListCommand, error) {
	glazedParameterLayer, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, errors.Wrap(err, "could not create glazed parameter layer")
	}

	return &SessionsListCommand{
		CommandDescription: cmds.NewCommandDescription(
			"list",
			cmds.WithShort("List sessions, most recently updated first"),
			cmds.WithLayersList(glazedParameterLayer),
		),
	}, nil
}

func (c *SessionsListCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedLayers *layers.ParsedLayers,
	gp middlewares.Processor,
) error {
	return withSessionStore(func(store *sessions.Store) error {
		list, err := store.List(ctx)
		if err != nil {
			return err
		}
		return addRows(ctx, gp, sessionRows(list))
	})
}

type SessionShowCommand struct {
	*cmds.CommandDescription
}

type SessionShowSettings struct {
	ID string `glazed.parameter:"id"`
}

var _ cmds.GlazeCommand = (*SessionShowCommand)(nil)

func NewSessionShowCommand() (*SessionShowCommand, error) {
	glazedParameterLayer, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, errors.Wrap(err, "could not create glazed parameter layer")
	}

	return &SessionShowCommand{
		CommandDescription: cmds.NewCommandDescription(
			"show",
			cmds.WithShort("Print the messages of a session"),
			cmds.WithArguments(
				parameters.NewParameterDefinition(
					"id",
					parameters.ParameterTypeString,
					parameters.WithHelp("Session id"),
					parameters.WithRequired(true),
				),
			),
			cmds.WithLayersList(glazedParameterLayer),
		),
	}, nil
}

func (c *SessionShowCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedLayers *layers.ParsedLayers,
	gp middlewares.Processor,
) error {
	s := &SessionShowSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, s); err != nil {
		return err
	}
	return withSessionStore(func(store *sessions.Store) error {
		session, err := store.Get(ctx, s.ID)
		if err != nil {
			return err
		}
		return addRows(ctx, gp, messageRows(session))
	})
}

type SessionsSearchCommand struct {
	*cmds.CommandDescription
}

type SessionsSearchSettings struct {
	Query []string `glazed.parameter:"query"`
}

var _ cmds.GlazeCommand = (*SessionsSearchCommand)(nil)

func NewSessionsSearchCommand() (*SessionsSearchCommand, error) {
	glazedParameterLayer, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, errors.Wrap(err, "could not create glazed parameter layer")
	}

	return &SessionsSearchCommand{
		CommandDescription: cmds.NewCommandDescription(
			"search",
			cmds.WithShort("Find sessions whose title or messages contain the query"),
			cmds.WithArguments(
				parameters.NewParameterDefinition(
					"query",
					parameters.ParameterTypeStringList,
					parameters.WithHelp("Words to search for, matched as one phrase"),
					parameters.WithRequired(true),
				),
			),
			cmds.WithLayersList(glazedParameterLayer),
		),
	}, nil
}

func (c *SessionsSearchCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedLayers *layers.ParsedLayers,
	gp middlewares.Processor,
) error {
	s := &SessionsSearchSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, s); err != nil {
		return err
	}
	return withSessionStore(func(store *sessions.Store) error {
		results, err := store.Search(ctx, strings.Join(s.Query, " "))
		if err != nil {
			return err
		}
		return addRows(ctx, gp, searchResultRows(results))
	})
}
