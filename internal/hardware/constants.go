package hardware

const (
	// Consumer is the GPIO consumer label of the requested lines
	Consumer = "show-service"

	IIODevicesDir = "/sys/bus/iio/devices"
)

// Line order of the status LED
const (
	ledRed = iota
	ledGreen
	ledBlue
	ledCount
)

var ledNames = [ledCount]string{"red", "green", "blue"}
