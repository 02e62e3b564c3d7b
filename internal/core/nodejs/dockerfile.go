package nodejs

// =============================================================================
// Dockerfile Scaffold
// =============================================================================

// BaseImage is the arm32v7 Node.js image every build starts from.
const BaseImage = "yobasystems/alpine-nodejs:arm32v7-min"

// AppDir is the working directory of the application inside the image.
const AppDir = "/usr/src/app"

// exposedPorts are the ports declared by the scaffold, in declaration order.
var exposedPorts = []int{80, 443}

// dockerfileHead runs up to and including the package.json copy.
const dockerfileHead = `FROM ` + BaseImage + `

# create folder and set it as workdir
RUN mkdir -p ` + AppDir + `
WORKDIR ` + AppDir + `

# update system packages
RUN apk update
RUN apk upgrade

# add build dependencies
RUN apk add -U curl git make gcc g++ python linux-headers paxctl libgcc libstdc++ binutils-gold ca-certificates

# update npm
RUN npm install npm -g

# copy package.json and install
COPY ` + ManifestFile + ` ` + AppDir + `/
`

// dockerfileTail follows the install fragment.
const dockerfileTail = `
# remove build-only dependencies
RUN apk del -U curl python

# copy app itself
COPY . ` + AppDir + `

EXPOSE 80
EXPOSE 443

CMD ["npm", "start"]
`

// =============================================================================
// Install Fragments
// =============================================================================

const (
	yarnFragment = `COPY ` + YarnLockFile + ` ` + AppDir + `/
RUN yarn --silent --production
`
	packageLockFragment = `COPY ` + PackageLockFile + ` ` + AppDir + `/
RUN npm ci --silent --only=prod
`
	unpinnedFragment = `RUN npm install --silent --only=prod
`
)

// InstallFragment returns the dependency install lines for a strategy.
// Unknown values fall back to the unpinned install.
func InstallFragment(s LockStrategy) string {
	switch s {
	case StrategyYarnLock:
		return yarnFragment
	case StrategyPackageLock:
		return packageLockFragment
	default:
		return unpinnedFragment
	}
}

// GenerateDockerfile renders the complete Dockerfile for a strategy.
// The output depends on nothing but s.
func GenerateDockerfile(s LockStrategy) string {
	return dockerfileHead + InstallFragment(s) + dockerfileTail
}

// ExposedPorts returns the container ports declared by the Dockerfile.
func ExposedPorts() []int {
	ports := make([]int, len(exposedPorts))
	copy(ports, exposedPorts)
	return ports
}
