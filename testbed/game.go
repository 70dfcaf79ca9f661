package testbed

import (
	"time"

	"golang.org/x/exp/rand"

	"github.com/spaghettifunk/phusis/engine"
	"github.com/spaghettifunk/phusis/engine/core"
	"github.com/spaghettifunk/phusis/engine/math"
	"github.com/spaghettifunk/phusis/engine/renderer/metadata"
)

const (
	// spacing of the cube grid in world units
	gridSpacing float32 = 2.5
	// how often one cube is switched on or off
	toggleEvery = 250 * time.Millisecond
	// how often the population changes
	respawnEvery = 2 * time.Second
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	rng  *rand.Rand
	mesh *metadata.Mesh

	// population bounds around the configured object count
	minObjects int
	maxObjects int

	cubes []*cube

	camera     math.Vec3
	view       math.Mat4
	projection math.Mat4

	sinceToggle  time.Duration
	sinceRespawn time.Duration
}

type cube struct {
	object   *metadata.SceneObject
	position math.Vec3
	angle    float32
	// radians per second
	speed float32
}

// NewTestGame builds a scene of spinning cubes whose number and visibility
// change over time, so the renderer keeps redistributing command buffers.
func NewTestGame(config *engine.ApplicationConfig, seed uint64) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State: &gameState{
				rng:        rand.New(rand.NewSource(seed)),
				mesh:       cubeMesh(),
				minObjects: config.Objects / 2,
				maxObjects: config.Objects + config.Objects/2,
				camera:     math.NewVec3(0, 12, 30),
			},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize() error {
	core.LogInfo("initializing testbed with %d cubes", g.ApplicationConfig.Objects)

	s := g.state()
	aspect := float32(g.ApplicationConfig.Width) / float32(g.ApplicationConfig.Height)
	s.projection = math.NewMat4Perspective(math.DegToRad(45), aspect, 0.1, 1000)
	s.view = math.NewMat4LookAt(s.camera, math.NewVec3(0, 0, 0), math.NewVec3(0, 1, 0))

	s.cubes = s.cubes[:0]
	s.resize(g.ApplicationConfig.Objects)
	return nil
}

func (g *TestGame) Update(delta time.Duration) error {
	s := g.state()
	seconds := float32(delta.Seconds())
	for _, c := range s.cubes {
		c.angle += c.speed * seconds
		if c.angle > math.K_PI_2 {
			c.angle -= math.K_PI_2
		}
		c.object.Rotation = math.NewMat4Translation(c.position).Mul(math.NewMat4EulerY(c.angle))
	}

	s.sinceToggle += delta
	if s.sinceToggle >= toggleEvery && len(s.cubes) > 0 {
		s.sinceToggle = 0
		c := s.cubes[s.rng.Intn(len(s.cubes))]
		c.object.Enabled = !c.object.Enabled
	}

	s.sinceRespawn += delta
	if s.sinceRespawn >= respawnEvery {
		s.sinceRespawn = 0
		target := s.minObjects
		if span := s.maxObjects - s.minObjects; span > 0 {
			target += s.rng.Intn(span + 1)
		}
		if target != len(s.cubes) {
			core.LogDebug("testbed population %d -> %d", len(s.cubes), target)
		}
		s.resize(target)
	}
	return nil
}

func (g *TestGame) Render(bound *metadata.FrameBoundData, delta time.Duration) error {
	s := g.state()
	bound.View = s.view
	bound.Projection = s.projection
	bound.Objects = make([]*metadata.SceneObject, len(s.cubes))
	for i, c := range s.cubes {
		bound.Objects[i] = c.object
	}
	return nil
}

func (g *TestGame) Shutdown() error {
	core.LogInfo("shutting down testbed with %d cubes", len(g.state().cubes))
	return nil
}

func (s *gameState) resize(n int) {
	if n < len(s.cubes) {
		s.cubes = s.cubes[:n]
		return
	}
	for i := len(s.cubes); i < n; i++ {
		s.cubes = append(s.cubes, s.spawn(i))
	}
}

// spawn places cube i on a square grid centred on the origin.
func (s *gameState) spawn(i int) *cube {
	side := 1
	for side*side < s.maxObjects {
		side++
	}
	half := float32(side-1) / 2
	position := math.NewVec3(
		(float32(i%side)-half)*gridSpacing,
		0,
		(float32(i/side)-half)*gridSpacing,
	)

	return &cube{
		object: &metadata.SceneObject{
			ID:       core.IdentifierAquireNewID(),
			Enabled:  true,
			Rotation: math.NewMat4Translation(position),
			Color:    math.NewVec4(s.rng.Float32(), s.rng.Float32(), s.rng.Float32(), 1),
			Mesh:     s.mesh,
		},
		position: position,
		speed:    0.5 + 2*s.rng.Float32(),
	}
}

// cubeMesh describes a unit cube: 24 vertices, 6 faces of 2 triangles. The
// handles are names since the headless backend never dereferences them.
func cubeMesh() *metadata.Mesh {
	return &metadata.Mesh{
		Vertices: []metadata.Buffer{{Handle: "cube.vertices", Count: 24}},
		Indices:  []metadata.Buffer{{Handle: "cube.indices", Count: 36}},
	}
}
