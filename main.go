// Package main is the entry point for the ARX5 Viam module.
package main

import (
	"context"

	"go.viam.com/rdk/components/arm"
	"go.viam.com/rdk/components/gripper"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/module"
	"go.viam.com/utils"

	// Import packages to register components
	arx5Arm "github.com/paladin1013/arx5-sdk/arm"
	arx5Gripper "github.com/paladin1013/arx5-sdk/gripper"
)

func main() {
	utils.ContextualMain(mainWithArgs, module.NewLoggerFromArgs("arx5"))
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) error {
	mod, err := module.NewModuleFromArgs(ctx)
	if err != nil {
		return err
	}

	// Register arm component
	if err := mod.AddModelFromRegistry(ctx, arm.API, arx5Arm.Model); err != nil {
		return err
	}

	// Register gripper component
	if err := mod.AddModelFromRegistry(ctx, gripper.API, arx5Gripper.Model); err != nil {
		return err
	}

	if err := mod.Start(ctx); err != nil {
		return err
	}
	defer mod.Close(ctx)

	<-ctx.Done()
	return nil
}
