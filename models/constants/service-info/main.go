package serviceInfo

import "fmt"

type ServiceInfo string

var (
	SERVICE_NAME        ServiceInfo = "Primer ID Submission Portal"
	SERVICE_WELCOME     ServiceInfo = "Welcome to the Primer ID job submission API!"
	SERVICE_DESCRIPTION ServiceInfo = "Collects TCS/DR, OGV, Splicing, Intactness and Coreceptor jobs for out-of-band processing."
	SERVICE_CONTACT     ServiceInfo = "mailto:primer-id@unc.edu"

	SERVICE_ARTIFACT    ServiceInfo = "primer-id"
	SERVICE_VERSION     ServiceInfo = "1.0.0"
	SERVICE_TYPE_NO_VER ServiceInfo = ServiceInfo(fmt.Sprintf("edu.unc.primer-id:%s", SERVICE_ARTIFACT))
	SERVICE_ID          ServiceInfo = SERVICE_TYPE_NO_VER
	SERVICE_TYPE        ServiceInfo = ServiceInfo(fmt.Sprintf("%s:%s", SERVICE_TYPE_NO_VER, SERVICE_VERSION))
)
