package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"runtime"
	"strings"
	"time"

	"github.com/tmaxted/oriel/audio"
	"github.com/tmaxted/oriel/formats"
	"github.com/tmaxted/oriel/geometry"
	"github.com/tmaxted/oriel/glfwcontext"
	"github.com/tmaxted/oriel/glgfx"
	"github.com/tmaxted/oriel/graphics"
	"github.com/tmaxted/oriel/options"
	"github.com/tmaxted/oriel/resource"
	"github.com/tmaxted/oriel/task"
	"github.com/tmaxted/oriel/vfs"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	var configPath = flag.String("config", "", "Path to a TOML config file")
	var assetRoot = flag.String("assets", "", "Asset root directory (overrides config)")
	var meshPath = flag.String("mesh", "", "Mesh to load and display, relative to the asset root")
	var texturePath = flag.String("texture", "", "Texture to load alongside the mesh")
	var soundPath = flag.String("sound", "", "Sound to load and play on startup")
	var help = flag.Bool("help", false, "Show help message")

	flag.Parse()

	if *help {
		fmt.Println("Oriel resource pipeline viewer")
		flag.PrintDefaults()
		return
	}

	opts := options.Default()
	if *configPath != "" {
		var err error
		opts, err = options.Load(*configPath)
		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}
	}
	if *assetRoot != "" {
		opts.AssetRoot = *assetRoot
	}

	if err := run(opts, *meshPath, *texturePath, *soundPath); err != nil {
		log.Fatalf("Viewer failed: %v", err)
	}
}

func run(opts *options.Options, meshPath, texturePath, soundPath string) error {
	if err := glfwcontext.InitGraphics(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %w", err)
	}
	defer glfwcontext.TerminateGraphics()

	ctx, err := glfwcontext.New(opts.Title, opts.Width, opts.Height, true)
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}
	defer ctx.Shutdown()
	ctx.MakeCurrent()

	dev, err := glgfx.NewDevice()
	if err != nil {
		return err
	}

	program, err := glgfx.NewBasicProgram()
	if err != nil {
		return err
	}
	defer program.Destroy()

	var engine audio.Engine
	if opts.Audio {
		pa, err := audio.NewPortAudioEngine()
		if err != nil {
			log.Printf("PortAudio unavailable, sounds will be silent: %v", err)
			engine = audio.NewNullEngine()
		} else {
			engine = pa
		}
	} else {
		engine = audio.NewNullEngine()
	}
	defer engine.Close()

	fsys, err := vfs.NewOS(opts.AssetRoot)
	if err != nil {
		return fmt.Errorf("failed to open asset root %q: %w", opts.AssetRoot, err)
	}

	mgr := resource.NewManager(fsys, dev, engine)
	defer mgr.Dispose()
	if err := mgr.Register(formats.ImageHandler{}); err != nil {
		return err
	}
	if err := mgr.Register(formats.AudioHandler{}); err != nil {
		return err
	}

	mgr.Scheduler().TaskCompleted = func(r task.Runner, err error) {
		if err == nil {
			log.Printf("Loaded %s", r.Label())
		}
	}

	// The transform fits whatever extents the displayed mesh has. The
	// generated cube's are known up front; a mesh loaded from disk gets
	// unit extents since its data is released after buffering.
	extents := geometry.Extents{Min: [3]float32{-1, -1, -1}, Max: [3]float32{1, 1, 1}}

	var meshTask *resource.MeshTask
	if meshPath != "" {
		meshTask = mgr.LoadMesh(assetPath(meshPath))
	} else {
		cube := demoCube()
		extents = cube.Bounds()
		meshTask = mgr.LoadMeshData(cube)
	}

	var textureTask *resource.TextureTask
	if texturePath != "" {
		textureTask = mgr.LoadTexture(assetPath(texturePath), graphics.FilterMipmap)
	}

	var soundTask *resource.SoundTask
	if soundPath != "" {
		soundTask = mgr.LoadSound(assetPath(soundPath))
	}

	budget := opts.FrameBudget()
	start := time.Now()
	var mesh graphics.MeshBuffer
	soundStarted := false

	for !ctx.ShouldClose() {
		mgr.Scheduler().Continue(budget)

		if mesh == nil {
			if b, err := meshTask.Result(); err == nil {
				mesh = b
			} else if !errors.Is(err, task.ErrPending) {
				return fmt.Errorf("mesh load failed: %w", err)
			}
		}
		if textureTask != nil {
			if _, err := textureTask.Result(); err != nil && !errors.Is(err, task.ErrPending) {
				log.Printf("Texture load failed: %v", err)
				textureTask = nil
			}
		}
		if soundTask != nil && !soundStarted {
			if src, err := soundTask.Result(); err == nil {
				if err := src.Play(); err != nil {
					log.Printf("Playback failed: %v", err)
				}
				soundStarted = true
			} else if !errors.Is(err, task.ErrPending) {
				log.Printf("Sound load failed: %v", err)
				soundTask = nil
			}
		}

		w, h := ctx.GetFramebufferSize()
		glgfx.Clear(w, h)

		if mesh != nil {
			angle := float32(time.Since(start).Seconds() * 0.6)
			transform := glgfx.SpinTransform(extents, angle)
			program.Use(&transform, [4]float32{0.85, 0.87, 0.92, 1})
			mesh.Draw()
		}

		ctx.EndFrame()
	}
	return nil
}

// assetPath turns a flag value into an absolute resource path rooted at
// the asset filesystem.
func assetPath(s string) resource.Path {
	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	p, err := resource.ParsePath(s)
	if err != nil {
		log.Fatalf("Bad resource path %q: %v", s, err)
	}
	return p
}

// demoCube builds the fallback mesh shown when no mesh path is given.
func demoCube() *geometry.Mesh {
	corners := [][3]float32{
		{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
		{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
	}
	m := &geometry.Mesh{
		Name:     "demo cube",
		Format:   geometry.VertexPosition,
		Vertices: make([]geometry.Vertex, len(corners)),
	}
	for i, c := range corners {
		m.Vertices[i].Pos = c
	}
	quads := [][4]uint32{
		{0, 1, 2, 3}, {5, 4, 7, 6}, {4, 0, 3, 7},
		{1, 5, 6, 2}, {3, 2, 6, 7}, {4, 5, 1, 0},
	}
	for _, q := range quads {
		m.Faces = append(m.Faces,
			geometry.Face{q[0], q[1], q[2]},
			geometry.Face{q[0], q[2], q[3]})
	}
	return m
}
