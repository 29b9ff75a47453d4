// Package mqtt provides MQTT client connectivity for Lumen Bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Lumen Bridge uses MQTT as an optional outbound transport for resource
// notifications: every bus channel maps to one topic under lumen/events.
// Downstream automations subscribe at the broker instead of holding a
// connection to the node itself.
//
//	Lumen Bridge ─▶ MQTT Broker ─▶ consumers (automations, dashboards)
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all outbound notifications
//	err = client.Subscribe(mqtt.Topics{}.AllNotifications(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
package mqtt
