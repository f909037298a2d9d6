package ble

// GATT identity advertised by the peripheral. RX is written by the client,
// TX notifies the client.
const (
	ServiceUUID = "00001999-0000-1000-8000-00805F9B34FB"
	RXCharUUID  = "4963505F-5258-4000-8000-00805F9B34FB"
	TXCharUUID  = "4963505F-5458-4000-8000-00805F9B34FB"

	DefaultDeviceName = "MCP_Server_BLE"
)
