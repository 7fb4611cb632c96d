package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"resumeparser.dev/launcher/internal/configloader"
	"resumeparser.dev/launcher/internal/environment"
	"resumeparser.dev/launcher/internal/journal"
	"resumeparser.dev/launcher/internal/launcher"
	"resumeparser.dev/launcher/internal/snapshot"
)

// Name of the current application. Used to load the configuration.
const APPLICATION_NAME = "parserlauncher"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code
func run(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	rootCommand := newRootCommand()
	rootCommand.SetArgs(args)
	rootCommand.SetIn(stdin)
	rootCommand.SetOut(stdout)
	rootCommand.SetErr(stderr)
	logrus.SetOutput(stderr)

	err := rootCommand.Execute()
	if err == nil {
		return 0
	}
	var exitError *launcher.ExitError
	if errors.As(err, &exitError) {
		return exitError.Code
	}
	logrus.Errorf("%+v", err)
	return 1
}

func newRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:           APPLICATION_NAME,
		Short:         "Start the resume parser server with its bind configuration",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          launch,
	}

	flags := rootCommand.PersistentFlags()
	flags.String("config", "", "Configuration file path")
	flags.String("log-level", "", "Log level (panic, fatal, error, warning, info, debug, trace)")
	flags.String("host", "", "Interface the parser binds to")
	flags.String("port", "", "Port the parser binds to")
	flags.String("app-dir", "", "Application directory, relative to the launcher unless absolute")
	flags.String("entry", "", "Entry point inside the application directory")
	flags.String("interpreter", "", "Interpreter running the entry point")
	flags.StringSlice("tool-path", nil, "Directory appended to the parser PATH (repeatable)")
	flags.StringSlice("env", nil, "Extra KEY=VALUE variable for the parser (repeatable)")
	flags.Bool("exec", false, "Replace the launcher process with the parser")
	flags.String("journal", "", "SQLite launch journal path")
	flags.String("snapshot", "", "TOML snapshot path of the last launched environment")

	rootCommand.AddCommand(newEnvCommand(), newHistoryCommand())
	return rootCommand
}

// loadConfiguration reads the configuration and applies its log level
func loadConfiguration(command *cobra.Command) (configuration configloader.Config, err error) {
	configurationFilePath, _ := command.Flags().GetString("config")
	if configuration, err = configloader.LoadConfiguration(APPLICATION_NAME, configurationFilePath, command.Flags()); err != nil {
		return
	}
	level, err := logrus.ParseLevel(configuration.LogLevel)
	if err != nil {
		return
	}

	// Set log level
	logrus.SetLevel(level)
	if configurationFilePath != "" {
		logrus.Infof("Loaded config file %s", configurationFilePath)
	}
	logrus.Debugf("Setting log level to %s", level.String())

	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		logrus.Debug("Launching parser launcher v.", buildInfo.Main.Version)
	}
	return
}

func buildEnvironment(configuration configloader.Config) (*environment.Environment, error) {
	return environment.Build(os.Environ(), environment.Settings{
		Host:      configuration.Host,
		Port:      configuration.Port,
		ToolPaths: configuration.ToolPaths,
		Extra:     configuration.ExtraEnvironment,
	})
}

func launch(command *cobra.Command, _ []string) error {
	configuration, err := loadConfiguration(command)
	if err != nil {
		return err
	}
	env, err := buildEnvironment(configuration)
	if err != nil {
		return err
	}

	parserLauncher := launcher.New(launcher.Settings{
		ApplicationDirectory: configuration.ApplicationDirectory,
		EntryPoint:           configuration.EntryPoint,
		Interpreter:          configuration.Interpreter,
		Exec:                 configuration.Exec,
	}, env,
		launcher.WithInput(command.InOrStdin()),
		launcher.WithOutput(command.OutOrStdout(), command.ErrOrStderr()))

	if configuration.JournalPath != "" {
		launchJournal := &journal.SQLiteJournal{Path: configuration.JournalPath}
		if err := openJournal(launchJournal); err != nil {
			logrus.Warn("Launch journal disabled")
			logrus.Warnf("%+v", err)
		} else {
			defer launchJournal.Close()
			parserLauncher.EventEmitter.Subscribe(journal.NewRecorder(launchJournal, env).HandleEvent)
		}
	}
	if configuration.SnapshotPath != "" {
		recorder := &snapshot.Recorder{Path: configuration.SnapshotPath, Environment: env}
		parserLauncher.EventEmitter.Subscribe(recorder.HandleEvent)
	}

	return parserLauncher.Launch(command.Context())
}

func openJournal(launchJournal *journal.SQLiteJournal) error {
	if err := launchJournal.Open(); err != nil {
		return err
	}
	if err := launchJournal.Migrate(); err != nil {
		launchJournal.Close()
		return err
	}
	return nil
}

func newEnvCommand() *cobra.Command {
	envCommand := &cobra.Command{
		Use:   "env",
		Short: "Print the bind configuration without starting the parser",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			configuration, err := loadConfiguration(command)
			if err != nil {
				return err
			}
			out := command.OutOrStdout()

			if last, _ := command.Flags().GetBool("last"); last {
				if configuration.SnapshotPath == "" {
					return errors.New("no snapshot path configured")
				}
				lastSnapshot, err := snapshot.Read(configuration.SnapshotPath)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "# launched at %s in %s\n", lastSnapshot.LaunchedAt.Format(time.RFC3339), lastSnapshot.WorkDir)
				return printVariables(out, lastSnapshot.Variables)
			}

			env, err := buildEnvironment(configuration)
			if err != nil {
				return err
			}
			return printVariables(out, env.Recognized())
		},
	}
	envCommand.Flags().Bool("last", false, "Print the environment of the last launch instead")
	return envCommand
}

func printVariables(out io.Writer, variables map[string]string) error {
	for _, key := range []string{environment.HOST_VARIABLE, environment.PORT_VARIABLE, environment.PATH_VARIABLE} {
		if _, err := fmt.Fprintf(out, "%s=%s\n", key, variables[key]); err != nil {
			return err
		}
	}
	return nil
}

func newHistoryCommand() *cobra.Command {
	historyCommand := &cobra.Command{
		Use:   "history",
		Short: "List the launches recorded in the journal",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			configuration, err := loadConfiguration(command)
			if err != nil {
				return err
			}
			if configuration.JournalPath == "" {
				return errors.New("no journal path configured")
			}
			limit, _ := command.Flags().GetInt("limit")

			launchJournal := &journal.SQLiteJournal{Path: configuration.JournalPath}
			if err := openJournal(launchJournal); err != nil {
				return err
			}
			defer launchJournal.Close()
			launches, err := launchJournal.GetLaunches(limit)
			if err != nil {
				return err
			}

			writer := tabwriter.NewWriter(command.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "ID\tSTARTED\tADDRESS\tPID\tEXIT\tERROR")
			for _, entry := range launches {
				fmt.Fprintf(writer, "%s\t%s\t%s:%s\t%d\t%d\t%s\n",
					entry.ID, entry.StartedAt.Format(time.RFC3339), entry.Host, entry.Port,
					entry.PID, entry.ExitCode, entry.Error)
			}
			return writer.Flush()
		},
	}
	historyCommand.Flags().Int("limit", 20, "Maximum number of launches, 0 for all")
	return historyCommand
}
