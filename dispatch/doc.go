// Package dispatch holds the resolved native entry points.
//
// Tables are plain structs of Go function values, one field per native
// function, resolved once when the owning context is created and then
// threaded down the ownership chain: an instance keeps its InstanceTable,
// a device its DeviceTable, and every child reaches the table through its
// parent. Addresses and handles cross the boundary as uint64 values in
// the loader's address space; results come back as result.Code.
//
// Where the functions come from is the Loader's business: a shared
// library resolved through the platform loader, or an in-process driver.
package dispatch
