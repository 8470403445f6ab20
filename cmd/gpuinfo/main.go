package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/gpubind/abi"
	"github.com/wippyai/gpubind/handle"
	"github.com/wippyai/gpubind/internal/softdriver"
	"github.com/wippyai/gpubind/linmem"
	"github.com/wippyai/gpubind/vk"
)

func main() {
	var (
		verbose     = flag.Bool("v", false, "Log binding and driver activity to stderr")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		devices     = flag.Int("devices", 1, "Number of simulated physical devices")
		layer       = flag.String("layer", "", "Also list instance extensions of this layer")
	)
	flag.Parse()

	if *devices < 0 {
		fmt.Fprintln(os.Stderr, "Usage: gpuinfo [-v] [-i] [-devices n] [-layer name]")
		os.Exit(1)
	}

	if err := run(*verbose, *interactive, *devices, *layer, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(verbose, interactive bool, devices int, layer string, out io.Writer) error {
	if verbose {
		log, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		defer log.Sync()
		vk.SetLogger(log)
		handle.SetLogger(log)
		softdriver.SetLogger(log)
	}

	rep, err := inspect(devices, layer)
	if err != nil {
		return err
	}

	if f, ok := out.(*os.File); ok && interactive && term.IsTerminal(int(f.Fd())) {
		return runInteractive(rep)
	}
	printReport(out, rep)
	return nil
}

type report struct {
	version    abi.Version
	layers     []vk.LayerProperties
	extensions []vk.ExtensionProperties
	layerName  string
	layerExts  []vk.ExtensionProperties
	devices    []deviceReport
}

type deviceReport struct {
	props      vk.PhysicalDeviceProperties
	features   vk.PhysicalDeviceFeatures
	families   []vk.QueueFamilyProperties
	extensions []vk.ExtensionProperties
	// queues is the number of queues a device created with every family
	// could retrieve and idle.
	queues int
}

// simulatedConfig is the default driver configuration with n devices.
func simulatedConfig(n int) softdriver.Config {
	cfg := softdriver.DefaultConfig()
	base := cfg.PhysicalDevices[0]
	cfg.PhysicalDevices = make([]softdriver.PhysicalDevice, n)
	for i := range cfg.PhysicalDevices {
		pd := base
		pd.DeviceID = base.DeviceID + uint32(i)
		if n > 1 {
			pd.Name = fmt.Sprintf("%s #%d", base.Name, i)
		}
		cfg.PhysicalDevices[i] = pd
	}
	return cfg
}

func inspect(devices int, layer string) (*report, error) {
	ctx := context.Background()
	space, err := linmem.New(ctx, linmem.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("create address space: %w", err)
	}
	defer space.Close(ctx)

	drv := softdriver.New(space, simulatedConfig(devices))
	loader := drv.Loader()

	rep := &report{layerName: layer}
	if rep.version, err = vk.EnumerateInstanceVersion(loader); err != nil {
		return nil, fmt.Errorf("instance version: %w", err)
	}
	if rep.layers, err = vk.EnumerateInstanceLayerProperties(loader); err != nil {
		return nil, fmt.Errorf("layers: %w", err)
	}
	if rep.extensions, err = vk.EnumerateInstanceExtensionProperties(loader, ""); err != nil {
		return nil, fmt.Errorf("instance extensions: %w", err)
	}
	if layer != "" {
		if rep.layerExts, err = vk.EnumerateInstanceExtensionProperties(loader, layer); err != nil {
			return nil, fmt.Errorf("extensions of %s: %w", layer, err)
		}
	}

	inst, err := vk.CreateInstance(loader, &vk.InstanceCreateInfo{
		ApplicationInfo: &vk.ApplicationInfo{ApplicationName: "gpuinfo", APIVersion: abi.Version1_3},
	}, vk.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	defer inst.Release()

	pds, err := inst.EnumeratePhysicalDevices()
	if err != nil {
		return nil, fmt.Errorf("physical devices: %w", err)
	}
	for _, pd := range pds {
		d, err := inspectDevice(pd)
		pd.Release()
		if err != nil {
			return nil, err
		}
		rep.devices = append(rep.devices, d)
	}

	if v := drv.Violations(); len(v) > 0 {
		return nil, fmt.Errorf("driver reported misuse:\n  %s", strings.Join(v, "\n  "))
	}
	return rep, nil
}

func inspectDevice(pd *vk.PhysicalDevice) (deviceReport, error) {
	var d deviceReport
	var err error
	if d.props, err = pd.Properties(); err != nil {
		return d, fmt.Errorf("properties: %w", err)
	}
	if d.features, err = pd.Features(); err != nil {
		return d, fmt.Errorf("features of %s: %w", d.props.DeviceName, err)
	}
	if d.families, err = pd.QueueFamilyProperties(); err != nil {
		return d, fmt.Errorf("queue families of %s: %w", d.props.DeviceName, err)
	}
	if d.extensions, err = pd.EnumerateDeviceExtensionProperties(""); err != nil {
		return d, fmt.Errorf("extensions of %s: %w", d.props.DeviceName, err)
	}
	if len(d.families) == 0 {
		return d, nil
	}

	info := &vk.DeviceCreateInfo{}
	for i, f := range d.families {
		prios := make([]float32, f.QueueCount)
		for j := range prios {
			prios[j] = 1
		}
		info.QueueCreateInfos = append(info.QueueCreateInfos, vk.DeviceQueueCreateInfo{
			QueueFamilyIndex: uint32(i),
			QueuePriorities:  prios,
		})
	}
	dev, err := pd.CreateDevice(info)
	if err != nil {
		return d, fmt.Errorf("create device on %s: %w", d.props.DeviceName, err)
	}
	defer dev.Release()

	for i, f := range d.families {
		for j := uint32(0); j < f.QueueCount; j++ {
			q, err := dev.Queue(uint32(i), j)
			if err != nil {
				return d, err
			}
			err = q.WaitIdle()
			q.Release()
			if err != nil {
				return d, fmt.Errorf("queue %d.%d: %w", i, j, err)
			}
			d.queues++
		}
	}
	return d, dev.WaitIdle()
}

func deviceTypeName(t uint32) string {
	switch t {
	case abi.DeviceTypeIntegratedGPU:
		return "integrated GPU"
	case abi.DeviceTypeDiscreteGPU:
		return "discrete GPU"
	case abi.DeviceTypeVirtualGPU:
		return "virtual GPU"
	case abi.DeviceTypeCPU:
		return "CPU"
	}
	return "other"
}

func queueFlagsString(flags uint32) string {
	var names []string
	for _, f := range []struct {
		bit  uint32
		name string
	}{
		{abi.QueueGraphics, "graphics"},
		{abi.QueueCompute, "compute"},
		{abi.QueueTransfer, "transfer"},
		{abi.QueueSparseBinding, "sparse"},
	} {
		if flags&f.bit != 0 {
			names = append(names, f.name)
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, "|")
}

func printReport(w io.Writer, rep *report) {
	fmt.Fprintf(w, "Instance version: %s\n", rep.version)

	fmt.Fprintf(w, "\nLayers (%d):\n", len(rep.layers))
	for _, l := range rep.layers {
		fmt.Fprintf(w, "  %s %s (impl %d) - %s\n", l.LayerName, l.SpecVersion, l.ImplementationVersion, l.Description)
	}

	fmt.Fprintf(w, "\nInstance extensions (%d):\n", len(rep.extensions))
	printExtensions(w, rep.extensions)
	if rep.layerName != "" {
		fmt.Fprintf(w, "\nExtensions of %s (%d):\n", rep.layerName, len(rep.layerExts))
		printExtensions(w, rep.layerExts)
	}

	for i, d := range rep.devices {
		fmt.Fprintf(w, "\nDevice %d: %s\n", i, d.props.DeviceName)
		fmt.Fprintf(w, "  Type:        %s\n", deviceTypeName(d.props.DeviceType))
		fmt.Fprintf(w, "  API version: %s\n", d.props.APIVersion)
		fmt.Fprintf(w, "  Vendor/ID:   %#x/%#x\n", d.props.VendorID, d.props.DeviceID)
		fmt.Fprintf(w, "  Features:    %s\n", strings.Join(d.features.Enabled, ", "))
		fmt.Fprintf(w, "  Queue families:\n")
		for j, f := range d.families {
			fmt.Fprintf(w, "    %d: %d x %s (timestamp bits %d)\n", j, f.QueueCount, queueFlagsString(f.QueueFlags), f.TimestampValidBits)
		}
		fmt.Fprintf(w, "  Queues verified: %d\n", d.queues)
		fmt.Fprintf(w, "  Extensions (%d):\n", len(d.extensions))
		for _, e := range d.extensions {
			fmt.Fprintf(w, "    %s v%d\n", e.ExtensionName, e.SpecVersion)
		}
	}
}

func printExtensions(w io.Writer, exts []vk.ExtensionProperties) {
	for _, e := range exts {
		fmt.Fprintf(w, "  %s v%d\n", e.ExtensionName, e.SpecVersion)
	}
}
