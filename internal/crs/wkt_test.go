package crs

import (
	"errors"
	"testing"
)

const (
	wgs84WKT1 = `GEOGCS["WGS 84",
    DATUM["WGS_1984",
        SPHEROID["WGS 84",6378137,298.257223563,AUTHORITY["EPSG","7030"]],
        AUTHORITY["EPSG","6326"]],
    PRIMEM["Greenwich",0],
    UNIT["degree",0.0174532925199433],
    AUTHORITY["EPSG","4326"]]`

	utm32WKT2 = `PROJCRS["ETRS89 / UTM zone 32N",
    BASEGEOGCRS["ETRS89",
        DATUM["European Terrestrial Reference System 1989",
            ELLIPSOID["GRS 1980",6378137,298.257222101,LENGTHUNIT["metre",1]]]],
    CONVERSION["UTM zone 32N",METHOD["Transverse Mercator",ID["EPSG",9807]]],
    CS[Cartesian,2],
        AXIS["(E)",east],
        AXIS["(N)",north],
        LENGTHUNIT["metre",1],
    ID["EPSG",25832]]`

	esriUTM32 = `PROJCS["ETRS_1989_UTM_Zone_32N",GEOGCS["GCS_ETRS_1989",DATUM["D_ETRS_1989",SPHEROID["GRS_1980",6378137.0,298.257222101]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],PROJECTION["Transverse_Mercator"],PARAMETER["False_Easting",500000.0],PARAMETER["False_Northing",0.0],PARAMETER["Central_Meridian",9.0],PARAMETER["Scale_Factor",0.9996],PARAMETER["Latitude_Of_Origin",0.0],UNIT["Meter",1.0]]`
)

func TestParseWKT(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantCode string
		wantName string
		wantKind Kind
	}{
		{"wkt1 geographic", wgs84WKT1, "EPSG:4326", "WGS 84", KindGeographic},
		{"wkt2 projected", utm32WKT2, "EPSG:25832", "ETRS89 / UTM zone 32N", KindProjected},
		{"esri without authority", esriUTM32, "", "ETRS_1989_UTM_Zone_32N", KindProjected},
		{"parentheses", `GEOGCS("DHDN",AUTHORITY("epsg","4314"))`, "EPSG:4314", "DHDN", KindGeographic},
		{"escaped quote", `LOCAL_CS["site ""A"" grid"]`, "", `site "A" grid`, KindEngineering},
		{"geocentric", `GEOCCS["WGS 84",AUTHORITY["EPSG","4978"]]`, "EPSG:4978", "WGS 84", KindGeocentric},
		{"compound", `COMPD_CS["ETRS89 + DHHN92",PROJCS["x"],VERT_CS["DHHN92"],AUTHORITY["EPSG","5555"]]`, "EPSG:5555", "ETRS89 + DHHN92", KindCompound},
		{"lower case keyword", `geogcrs["WGS 84",id["EPSG",4326]]`, "EPSG:4326", "WGS 84", KindGeographic},
		{
			"boundcrs uses source",
			`BOUNDCRS[SOURCECRS[GEOGCRS["DHDN",ID["EPSG",4314]]],TARGETCRS[GEOGCRS["WGS 84",ID["EPSG",4326]]],ABRIDGEDTRANSFORMATION["DHDN to WGS 84",METHOD["Position Vector"]]]`,
			"EPSG:4314", "DHDN", KindGeographic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseWKT(tt.text)
			if err != nil {
				t.Fatalf("ParseWKT failed: %v", err)
			}
			if ref.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", ref.Code, tt.wantCode)
			}
			if ref.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", ref.Name, tt.wantName)
			}
			if ref.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", ref.Kind, tt.wantKind)
			}
			if ref.WKT == "" {
				t.Error("WKT should keep the parsed text")
			}
		})
	}
}

func TestParseWKT_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"not wkt", "+proj=utm +zone=32 +ellps=GRS80"},
		{"unterminated", `GEOGCS["WGS 84"`},
		{"unterminated string", `GEOGCS["WGS 84]`},
		{"empty node", `GEOGCS[]`},
		{"trailing input", `GEOGCS["WGS 84"] extra`},
		{"not a crs", `SPHEROID["WGS 84",6378137,298.257223563]`},
		{"bad number", `GEOGCS["x",UNIT["degree",1.2.3]]`},
		{"missing separator", `GEOGCS["x" "y"]`},
		{"anonymous", `GEOGCS[DATUM["D"]]`},
		{"bound without source", `BOUNDCRS[TARGETCRS[GEOGCRS["WGS 84"]]]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWKT(tt.text)
			if !errors.Is(err, ErrWKT) {
				t.Errorf("ParseWKT error = %v, want ErrWKT", err)
			}
		})
	}
}
