// Package provisioner runs a device registration against the provisioning
// service over MQTT.
//
// The flow is driven by the device:
//
//  1. subscribe to the registration response filter
//  2. publish the register request
//  3. for each response, classify the operation state
//  4. while the operation is assigning, wait at least the service's
//     retry-after and publish a query-status request
//  5. stop on a terminal state and store the outcome
//
// A device that already holds a usable assignment can skip the exchange
// entirely (Config.UseStored). Config.Reprovision does the opposite and
// deletes stored assignments so the service is asked again.
package provisioner
