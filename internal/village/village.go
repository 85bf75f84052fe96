// 包 village：村级记录的数据模型与自由文本归一化规则，供统计、分级与定位模块共享
package village

// 文档注释：村级记录（一个行政村的全部属性）
// 背景：字段名沿用数据服务的 JSON 键；属性分组缺失时按零值处理，聚合层不区分“缺失”与“零”。
// 约束：ID 全局唯一，是选中态、边界匹配与排行榜的唯一关联键。
type Record struct {
	ID             string  `json:"id" db:"id"`
	Name           string  `json:"name" db:"name"`
	District       string  `json:"district" db:"district"`
	Latitude       float64 `json:"latitude" db:"latitude"`
	Longitude      float64 `json:"longitude" db:"longitude"`
	Topography     string  `json:"topography" db:"topography"`
	ForestLocation string  `json:"forest_location" db:"forest_location"`
	Status         string  `json:"status" db:"status"`

	Economy        Economy        `json:"economy"`
	Disease        Disease        `json:"disease"`
	Digital        Digital        `json:"digital"`
	Infrastructure Infrastructure `json:"infrastructure"`
	Disaster       Disaster       `json:"disaster"`
	Health         Health         `json:"health"`
	Education      Education      `json:"education"`
	Criminal       Criminal       `json:"criminal"`
	Social         Social         `json:"social"`
	Security       Security       `json:"security"`
	Sanitation     Sanitation     `json:"sanitasi"`
}

type Economy struct {
	PrimaryIncome  string `json:"primary_income"`
	Markets        int    `json:"markets"`
	Banks          int    `json:"banks"`
	Bank           int    `json:"bank"`
	Cooperatives   int    `json:"cooperatives"`
	Bumdes         int    `json:"bumdes"`
	Industries     int    `json:"industries"`
	Grocery        int    `json:"grocery"`
	Eatery         int    `json:"eatery"`
	Restaurant     int    `json:"restaurant"`
	Supermarket    int    `json:"supermarket"`
	Hotels         int    `json:"hotels"`
	MiningIndustry int    `json:"non_metallic_mining_industry"`
	PaperIndustry  int    `json:"paper_and_pulp_industry"`
	PrintIndustry  int    `json:"printing_industry"`
}

type Disease struct {
	MuntaberCases        int    `json:"muntaber_cases"`
	MuntaberDeaths       int    `json:"muntaber_deaths"`
	DBDCases             int    `json:"dbd_cases"`
	DBDDeaths            int    `json:"dbd_deaths"`
	CampakCases          int    `json:"campak_cases"`
	CampakDeaths         int    `json:"campak_deaths"`
	MalariaCases         int    `json:"malaria_cases"`
	MalariaDeaths        int    `json:"malaria_deaths"`
	SARSCases            int    `json:"sars_cases"`
	SARSDeaths           int    `json:"sars_deaths"`
	HepatitisECases      int    `json:"hepatitis_e_cases"`
	HepatitisEDeaths     int    `json:"hepatitis_e_deaths"`
	DifteriCases         int    `json:"difteri_cases"`
	DifteriDeaths        int    `json:"difteri_deaths"`
	CovidCases           int    `json:"covid_cases"`
	CovidDeaths          int    `json:"covid_deaths"`
	InfectiousCases      int    `json:"infectious_cases"`
	InfectiousDeaths     int    `json:"infectious_deaths"`
	MostCasesDisease     string `json:"most_cases_disease"`
	MostDeathsDisease    string `json:"most_deaths_disease"`
	DisabilityPopulation int    `json:"disability_population"`
}

type Digital struct {
	SignalStrength           string `json:"signal_strength"`
	SignalType               string `json:"signal_type"`
	BTSCount                 int    `json:"bts_count"`
	VillageInformationSystem string `json:"village_information_system"`
	InternetAvailability     string `json:"internet_availability"`
}

type Infrastructure struct {
	Electricity         string `json:"electricity"`
	ElectricitySource   string `json:"electricity_source"`
	StateElectricity    int    `json:"State_electricity_company"`
	NonStateElectricity int    `json:"Non_state_electricity_company"`
	NoElectricity       int    `json:"non_electricity"`
	WaterSource         string `json:"water_source"`
	WaterDrinkSource    string `json:"water_drink_source"`
	CookingFuel         string `json:"cooking_fuel"`
	RoadCondition       string `json:"road_condition"`
	SolarStreetLights   string `json:"rural_solar_street_lights"`
	MainStreetLights    string `json:"rural_main_street_lights"`
}

// Disaster：灾害字段中 *_exist 为自由文本，规范“存在”值为去空白、小写后的 "ada"
type Disaster struct {
	DisasterExist    string `json:"disaster_exist"`
	WarningSystem    string `json:"warning_system"`
	FloodExist       string `json:"flood_exist"`
	FloodCases       int    `json:"flood_cases"`
	FloodVictim      int    `json:"flood_victim"`
	FlashFloodExist  string `json:"flash_flood_exist"`
	FlashFloodVictim int    `json:"flash_flood_victim"`
	LandslideExist   string `json:"landslide_exist"`
	LandslideCases   int    `json:"landslide_cases"`
	LandslideVictim  int    `json:"landslide_victim"`
	DroughtExist     string `json:"drought_exist"`
	DroughtCases     int    `json:"drought_cases"`
	DroughtVictim    int    `json:"drought_victim"`
	EarthquakeExist  string `json:"earthquake_exist"`
	EarthquakeVictim int    `json:"earthquake_victim"`
	TsunamiExist     string `json:"tsunami_exist"`
	TsunamiVictim    int    `json:"tsunami_victim"`
	SeaWavesExist    string `json:"sea_waves_exist"`
	HurricaneExist   string `json:"hurricane_exist"`
	VolcanicExist    string `json:"volcanic_eruption_exist"`
}

type Health struct {
	Hospitals       int `json:"jumlah_rumah_sakit"`
	Puskesmas       int `json:"jumlah_puskesmas"`
	Clinics         int `json:"jumlah_klinik"`
	CommunityPosts  int `json:"jumlah_faskes_masyarakat"`
	Pharmacies      int `json:"jumlah_farmasi"`
	TotalFacilities int `json:"total_fasilitas_kesehatan"`
	Doctors         int `json:"jumlah_dokter"`
	Midwives        int `json:"jumlah_bidan"`
	OtherPersonnel  int `json:"jumlah_tenaga_kesehatan_lain"`
	TotalPersonnel  int `json:"total_tenaga_kesehatan"`
}

// Present：健康分组是否有任何非零值（用于区分“未采集”与“全零”的评分分支）
func (h Health) Present() bool { return h != Health{} }

type Education struct {
	SD                 int `json:"sd_counts"`
	SMP                int `json:"smp_counts"`
	SMA                int `json:"sma_counts"`
	SMK                int `json:"smk_counts"`
	Universities       int `json:"universities"`
	SDNegeri           int `json:"sd_negeri"`
	SDSwasta           int `json:"sd_swasta"`
	MINegeri           int `json:"mi_negeri"`
	MISwasta           int `json:"mi_swasta"`
	SMPNegeri          int `json:"smp_negeri"`
	SMPSwasta          int `json:"smp_swasta"`
	MTsNegeri          int `json:"mts_negeri"`
	MTsSwasta          int `json:"mts_swasta"`
	SMANegeri          int `json:"sma_negeri"`
	SMASwasta          int `json:"sma_swasta"`
	MANegeri           int `json:"ma_negeri"`
	MASwasta           int `json:"ma_swasta"`
	SMKNegeri          int `json:"smk_negeri"`
	SMKSwasta          int `json:"smk_swasta"`
	UniversitiesNegeri int `json:"universities_negeri"`
	UniversitiesSwasta int `json:"universities_swasta"`
}

func (e Education) Present() bool { return e != Education{} }

type Criminal struct {
	SuicideMen    int `json:"suicide_count_man"`
	SuicideWomen  int `json:"suicide_count_woman"`
	HomicideMen   int `json:"murderer_case_man"`
	HomicideWomen int `json:"murderer_case_woman"`
}

type Social struct {
	Religion        int    `json:"religion"`
	Mosque          int    `json:"mosque"`
	Musala          int    `json:"musala"`
	ChurchChristian int    `json:"church_christian"`
	ChurchCatholic  int    `json:"church_catholic"`
	MigrantMen      int    `json:"migran_man"`
	MigrantWomen    int    `json:"migran_woman"`
	Pub             string `json:"pub"`
}

type Security struct {
	Maintenance    string `json:"maintenance"`
	SecurityGroup  string `json:"security_group"`
	Reporting      string `json:"pelaporan"`
	SecuritySystem string `json:"security_system"`
	Linmas         int    `json:"linmas"`
}

type Sanitation struct {
	Waste          string `json:"sampah"`
	ThreeR         string `json:"tiga_r"`
	WasteBank      string `json:"bank_sampah"`
	Sorting        string `json:"pemilahan"`
	Toilet         string `json:"toilet"`
	LiquidWaste    string `json:"limbah_cair"`
	Slum           string `json:"slum"`
	WaterPollution string `json:"pencemaran_air"`
	AirPollution   string `json:"pencemaran_udara"`
	EnvPollution   string `json:"pencemaran_lingkungan"`
}
