package cmds

import (
	"context"
	"io"
	"os"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/trustagent/pkg/config"
	"github.com/go-go-golems/trustagent/pkg/tokens"
)

type TokensCountCommand struct {
	*cmds.CommandDescription
}

type TokensCountSettings struct {
	Model    string   `glazed.parameter:"model"`
	Encoding string   `glazed.parameter:"encoding"`
	Files    []string `glazed.parameter:"files"`
}

var _ cmds.GlazeCommand = (*TokensCountCommand)(nil)

func NewTokensCountCommand() (*TokensCountCommand, error) {
	glazedParameterLayer, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, errors.Wrap(err, "could not create glazed parameter layer")
	}

	return &TokensCountCommand{
		CommandDescription: cmds.NewCommandDescription(
			"count",
			cmds.WithShort("Count the tokens of files, or of stdin"),
			cmds.WithFlags(
				parameters.NewParameterDefinition(
					"model",
					parameters.ParameterTypeString,
					parameters.WithHelp("Model used to pick the encoding"),
					parameters.WithDefault(config.DefaultModel),
				),
				parameters.NewParameterDefinition(
					"encoding",
					parameters.ParameterTypeString,
					parameters.WithHelp("Encoding to use instead of the model default"),
					parameters.WithDefault(""),
				),
			),
			cmds.WithArguments(
				parameters.NewParameterDefinition(
					"files",
					parameters.ParameterTypeStringList,
					parameters.WithHelp("Files to count, stdin if none"),
				),
			),
			cmds.WithLayersList(glazedParameterLayer),
		),
	}, nil
}

func (c *TokensCountCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedLayers *layers.ParsedLayers,
	gp middlewares.Processor,
) error {
	s := &TokensCountSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, s); err != nil {
		return err
	}
	counter, err := tokens.NewCounter(s.Model, s.Encoding)
	if err != nil {
		return err
	}

	if len(s.Files) == 0 {
		input, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		row, err := countRow(counter, "-", string(input))
		if err != nil {
			return err
		}
		return gp.AddRow(ctx, row)
	}

	for _, f := range s.Files {
		b, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		row, err := countRow(counter, f, string(b))
		if err != nil {
			return err
		}
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

func countRow(counter *tokens.Counter, file string, input string) (types.Row, error) {
	n, err := counter.Count(input)
	if err != nil {
		return nil, errors.Wrapf(err, "could not count %s", file)
	}
	return types.NewRow(
		types.MRP("file", file),
		types.MRP("model", counter.Model()),
		types.MRP("codec", counter.Encoding()),
		types.MRP("tokens", n),
	), nil
}

func NewTokensCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Token accounting helpers",
	}

	countCmd, err := NewTokensCountCommand()
	cobra.CheckErr(err)

	cmd.AddCommand(buildGlazeCommand(countCmd))
	return cmd
}
