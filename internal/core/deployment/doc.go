// Package deployment provides pure functions for deployment planning.
//
// This package turns a built image and the requesting identity into a
// container plan the docker shell can execute. All functions are pure
// (no I/O, no side effects).
//
// # Functions
//
//   - Naming: Generate consistent resource names (ImageRepository, ImageTag, ContainerName)
//   - Ports: Publish exposed ports and convert bindings (PublishPorts, ConvertPorts)
//   - Container: Build the container plan for a started build (BuildContainerPlan)
//
// # Usage
//
//	plan := deployment.BuildContainerPlan(deployment.BuildContainerPlanParams{
//	    Identity:    "alice",
//	    ProjectRoot: "/tmp/deploy/blog",
//	    Image:       build.Image,
//	    Ports:       nodejs.ExposedPorts(),
//	})
package deployment
