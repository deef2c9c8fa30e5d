package construct

import (
	"github.com/cfninit/cfninit/errs"
	"github.com/cfninit/cfninit/model"
	"github.com/cfninit/cfninit/tools"
)

// Build runs the full construction engine (C5) for the requested
// configSet names, in the order given: parse, linearise, then execute
// the Carpenter over each configSet's collapsed config list in
// declaration order. A failure inside a config is wrapped in a BuildError
// naming its configSet and config; errors from parsing the configSets, an
// unknown configSet name or a dependency cycle are returned as they are.
// Any failure aborts the whole build; partially-applied tools within the failing config are
// not rolled back (§4.5, Design Notes: fail-fast, no rollback).
func Build(m *model.Model, configSetNames []string, ctx *tools.Context) error {
	sets, err := parseConfigSets(m)
	if err != nil {
		return err
	}
	for _, name := range configSetNames {
		if _, ok := sets[name]; !ok {
			return &errs.NoSuchConfigSetError{Name: name}
		}
	}

	collapsed, err := linearize(sets)
	if err != nil {
		return err
	}

	for _, setName := range configSetNames {
		for _, configName := range collapsed[setName] {
			if err := buildOneConfig(m, setName, configName, ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func buildOneConfig(m *model.Model, setName, configName string, ctx *tools.Context) error {
	cd, ok, err := m.ConfigDefinition(configName)
	if err != nil {
		return &errs.BuildError{ConfigSet: setName, Config: configName, Cause: err}
	}
	if !ok {
		return &errs.BuildError{ConfigSet: setName, Config: configName, Cause: &errs.NoSuchConfigError{Name: configName}}
	}
	if err := cd.Validate(); err != nil {
		return &errs.BuildError{ConfigSet: setName, Config: configName, Cause: err}
	}
	if err := carpenter(*cd, ctx); err != nil {
		return &errs.BuildError{ConfigSet: setName, Config: configName, Cause: err}
	}
	return nil
}

// carpenter dispatches one ConfigDefinition's tools in the fixed order
// packages -> groups -> users -> sources -> files -> commands -> services
// (§4.5 Execute phase), each receiving the shared Changes accumulator.
func carpenter(cd model.ConfigDefinition, ctx *tools.Context) error {
	if len(cd.Packages) > 0 {
		if err := tools.ApplyPackages(cd.Packages, ctx); err != nil {
			return err
		}
	}
	if len(cd.Groups) > 0 {
		if err := tools.ApplyGroups(cd.Groups, ctx); err != nil {
			return err
		}
	}
	if len(cd.Users) > 0 {
		if err := tools.ApplyUsers(cd.Users, ctx); err != nil {
			return err
		}
	}
	if len(cd.Sources) > 0 {
		if err := tools.ApplySources(cd.Sources, ctx); err != nil {
			return err
		}
	}
	if len(cd.Files) > 0 {
		if err := tools.ApplyFiles(cd.Files, ctx); err != nil {
			return err
		}
	}
	if len(cd.Commands) > 0 {
		if err := tools.ApplyCommands(cd.Commands, ctx); err != nil {
			return err
		}
	}
	if len(cd.Services) > 0 {
		if err := tools.ApplyServices(cd.Services, ctx); err != nil {
			return err
		}
	}
	return nil
}
