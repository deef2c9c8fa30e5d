// Command cfn-hup polls a stack resource's metadata and fires configured
// hook actions when the watched value transitions.
package main

import (
	"os"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
	yaml "gopkg.in/yaml.v2"

	"github.com/cfninit/cfninit/auth"
	"github.com/cfninit/cfninit/hooks"
	"github.com/cfninit/cfninit/metadata"
	"github.com/cfninit/cfninit/model"
	"github.com/cfninit/cfninit/retry"
)

func main() {
	app := cli.NewApp()
	app.Name = "cfn-hup"
	app.Usage = "poll stack metadata and fire hook actions on transition"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "hooks", Usage: "path to the hooks YAML document", Required: true},
		cli.StringFlag{Name: "stack-name", Required: true},
		cli.StringFlag{Name: "endpoint", Value: "https://cloudformation.us-east-1.amazonaws.com/", Usage: "CloudFormation query endpoint"},
		cli.StringFlag{Name: "store", Value: "/var/lib/cfn-hup/state.db", Usage: "path to the persistent hook-state store"},
		cli.StringFlag{Name: "role", Usage: "instance role name to fetch credentials from, if not statically configured"},
		cli.StringFlag{Name: "access-key", Usage: "static access key, overridden by --role when given"},
		cli.StringFlag{Name: "secret-key"},
		cli.DurationFlag{Name: "interval", Value: 15 * time.Second, Usage: "poll interval"},
		cli.BoolFlag{Name: "once", Usage: "run a single poll and exit instead of looping"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		glog.Errorf("cfn-hup: %v", err)
		glog.Flush()
		os.Exit(1)
	}
	glog.Flush()
}

func run(c *cli.Context) error {
	raw, err := os.ReadFile(c.String("hooks"))
	if err != nil {
		return errors.Wrap(err, "reading hooks document")
	}
	var hookList []model.Hook
	if err := yaml.Unmarshal(raw, &hookList); err != nil {
		return errors.Wrap(err, "parsing hooks document")
	}

	creds, err := buildCredentials(c)
	if err != nil {
		return err
	}

	client := &metadata.Client{
		Endpoint:    c.String("endpoint"),
		Credentials: creds,
		HTTP:        retry.NewClient(retry.DefaultPolicy(), false, nil),
		Policy:      retry.DefaultPolicy(),
	}

	processor := &hooks.Processor{
		Hooks:     hookList,
		StackName: c.String("stack-name"),
		Metadata:  client,
		StorePath: c.String("store"),
	}

	if c.Bool("once") {
		return processor.Poll()
	}

	interval := c.Duration("interval")
	for {
		if err := processor.Poll(); err != nil {
			glog.Errorf("cfn-hup: poll failed: %v", err)
		}
		time.Sleep(interval)
	}
}

func buildCredentials(c *cli.Context) (auth.CredentialsProvider, error) {
	if role := c.String("role"); role != "" {
		metaClient, err := auth.NewInstanceMetadataClient()
		if err != nil {
			return nil, errors.Wrap(err, "reaching instance metadata")
		}
		return auth.NewRoleCredentialsProvider(metaClient, role), nil
	}
	return auth.StaticCredentials(model.Credentials{
		AccessKeyID:     c.String("access-key"),
		SecretAccessKey: c.String("secret-key"),
	}), nil
}
