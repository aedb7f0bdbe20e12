package device

import "testing"

func TestHasExtension(t *testing.T) {
	info := PhysicalDeviceInfo{Extensions: []string{"VK_KHR_swapchain", "VK_KHR_maintenance1"}}
	if !info.HasExtension("VK_KHR_swapchain") {
		t.Error("swapchain extension not found")
	}
	if !info.HasExtension("VK_KHR_swapchain\x00") {
		t.Error("NUL terminated name not matched")
	}
	if info.HasExtension("VK_KHR_display") {
		t.Error("found an extension that is not there")
	}
}

func TestGraphicsQueueFamilies(t *testing.T) {
	info := PhysicalDeviceInfo{QueueFamilies: []QueueFamily{
		{Index: 0, Count: 1, Transfer: true},
		{Index: 1, Count: 16, Graphics: true, Compute: true},
		{Index: 2, Count: 0, Graphics: true},
	}}
	families := info.GraphicsQueueFamilies()
	if len(families) != 1 || families[0] != 1 {
		t.Fatalf("unexpected graphics families: %v", families)
	}
}

func TestVersionString(t *testing.T) {
	if v := versionString(1<<22 | 1<<12 | 121); v != "1.1.121" {
		t.Fatalf("unexpected version: %s", v)
	}
}
