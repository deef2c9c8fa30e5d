// Command cfn-init reads a declarative configuration model and drives the
// local host into the state it describes, via the construction engine.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/cfninit/cfninit/auth"
	"github.com/cfninit/cfninit/construct"
	"github.com/cfninit/cfninit/errs"
	"github.com/cfninit/cfninit/model"
	"github.com/cfninit/cfninit/retry"
	"github.com/cfninit/cfninit/tools"
)

func main() {
	app := cli.NewApp()
	app.Name = "cfn-init"
	app.Usage = "materialise a declarative model onto the local host"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config", Usage: "path to the model JSON document", Required: true},
		cli.StringFlag{Name: "configsets", Value: model.DefaultConfigSetName, Usage: "comma-separated configSet names to build, in order"},
		cli.BoolFlag{Name: "frozen", Usage: "use the shipped CA bundle instead of the platform trust store"},
		cli.StringFlag{Name: "ca-bundle", Usage: "path to a PEM CA bundle, required when --frozen is set"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		glog.Errorf("cfn-init: %v", err)
		fmt.Fprintln(os.Stderr, formatChain(err))
		glog.Flush()
		os.Exit(1)
	}
	glog.Flush()
}

func run(c *cli.Context) error {
	raw, err := os.ReadFile(c.String("config"))
	if err != nil {
		return errors.Wrap(err, "reading model")
	}
	m, err := model.ParseModel(raw)
	if err != nil {
		return errors.Wrap(err, "parsing model")
	}

	var caCertPEM []byte
	if c.Bool("frozen") {
		caCertPEM, err = os.ReadFile(c.String("ca-bundle"))
		if err != nil {
			return errors.Wrap(err, "reading CA bundle")
		}
	}

	httpClient := retry.NewClient(retry.DefaultPolicy(), c.Bool("frozen"), caCertPEM)
	registry := auth.NewRegistry(m.Auth, roleProvider())

	ctx := &tools.Context{
		Auth:    registry,
		HTTP:    httpClient,
		Changes: model.NewChanges(),
	}

	setNames := splitNonEmpty(c.String("configsets"))
	if err := construct.Build(m, setNames, ctx); err != nil {
		return err
	}
	glog.Infof("cfn-init: build complete for configSets %v", setNames)
	return nil
}

// roleProvider returns the factory the auth registry calls for each auth
// entry that names an instance role; each call builds its own
// instance-metadata client.
func roleProvider() func(roleName string) auth.CredentialsProvider {
	var meta *ec2MetaHolder
	return func(roleName string) auth.CredentialsProvider {
		if meta == nil {
			meta = newEC2MetaHolder()
		}
		return meta.providerFor(roleName)
	}
}

type ec2MetaHolder struct {
	client *auth.RoleCredentialsProvider
	err    error
}

func newEC2MetaHolder() *ec2MetaHolder { return &ec2MetaHolder{} }

func (h *ec2MetaHolder) providerFor(roleName string) auth.CredentialsProvider {
	metaClient, err := auth.NewInstanceMetadataClient()
	if err != nil {
		glog.Warningf("auth: could not reach instance metadata for role %q: %v", roleName, err)
		return auth.StaticCredentials(model.Credentials{})
	}
	return auth.NewRoleCredentialsProvider(metaClient, roleName)
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// formatChain renders the configSet -> config -> tool context chain a
// failed build carries, per §7's user-visible behaviour.
func formatChain(err error) string {
	var be *errs.BuildError
	if e, ok := err.(*errs.BuildError); ok {
		be = e
	}
	if be == nil {
		return err.Error()
	}
	chain := "configSet " + be.ConfigSet
	if be.Config != "" {
		chain += " -> config " + be.Config
	}
	if te, ok := be.Cause.(*errs.ToolError); ok {
		chain += fmt.Sprintf(" -> tool %s (%s)", te.Tool, te.Entity)
	}
	return chain + ": " + be.Error()
}
