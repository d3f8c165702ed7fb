// Package vulkan implements the frame package's device, presenter, target
// and encoder interfaces on vkngwrapper.
package vulkan
