// Package composite swaps the HID report of TinyGo's CDC+HID composite
// descriptor for the gamepad report. Importing it is enough.
package composite

const (
	hidClassLength = 9
	hidClassType   = 0x21
)

// PatchReportLength rewrites wDescriptorLength of the first HID class
// descriptor in a configuration descriptor. It reports whether one was found.
func PatchReportLength(config []byte, n int) bool {
	for i := 0; i+hidClassLength <= len(config); {
		l := int(config[i])
		if l == 0 {
			return false
		}
		if l == hidClassLength && config[i+1] == hidClassType {
			config[i+7] = byte(n)
			config[i+8] = byte(n >> 8)
			return true
		}
		i += l
	}
	return false
}
